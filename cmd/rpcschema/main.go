package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/reoring/rpcschema"
	"github.com/reoring/rpcschema/apifile"
	"github.com/reoring/rpcschema/i18n"
	"github.com/reoring/rpcschema/internal/logging"
)

// errContract marks a payload that does not conform; the issues were already
// printed.
var errContract = errors.New("payload does not conform")

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	var err error
	switch sub := os.Args[1]; sub {
	case "check":
		err = checkCmd(os.Args[2:], os.Stdout)
	case "validate":
		err = validateCmd(os.Args[2:], os.Stdout)
	case "buffers":
		err = buffersCmd(os.Args[2:], os.Stdout)
	default:
		usage()
		os.Exit(2)
	}
	if errors.Is(err, errContract) {
		os.Exit(1)
	}
	if err != nil {
		fatalf("%s: %v", os.Args[1], err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "rpcschema CLI\n\nUsage:\n  rpcschema check [-config f.toml] [-v] files...\n  rpcschema validate [-config f.toml] -method /api/methods/name [-reply] -input payload.json files...\n  rpcschema buffers [-config f.toml] -id /api/methods/name/params files...\n\nNotes:\n  - files may be JSON or YAML API descriptions, or directories holding them.")
}

type commonFlags struct {
	config  string
	verbose bool
}

func (c *commonFlags) bind(fs *flag.FlagSet) {
	fs.StringVar(&c.config, "config", "", "TOML config file")
	fs.BoolVar(&c.verbose, "v", false, "enable debug logs")
}

// load builds a registry from the configured paths plus the positional ones.
func (c *commonFlags) load(args []string) (*rpcschema.Registry, error) {
	cfg, err := loadConfig(c.config)
	if err != nil {
		return nil, err
	}
	logging.ApplyEnv(&cfg.Log)
	if c.verbose {
		cfg.Log.Level = zerolog.DebugLevel
	}
	i18n.SetLanguage(cfg.Language)

	paths := append(cfg.APIPaths, args...)
	if len(paths) == 0 {
		return nil, errors.New("no api files given")
	}
	log := logging.New(os.Stderr, cfg.Log)
	reg := rpcschema.NewRegistry(rpcschema.WithLogger(log))
	if _, err := apifile.RegisterFiles(reg, paths...); err != nil {
		return nil, err
	}
	log.Debug().Strs("apis", reg.APIs()).Msg("registry ready")
	return reg, nil
}

func checkCmd(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	var cf commonFlags
	cf.bind(fs)
	_ = fs.Parse(args)

	reg, err := cf.load(fs.Args())
	if err != nil {
		return err
	}
	for _, name := range reg.APIs() {
		g, _ := reg.API(name)
		fmt.Fprintf(out, "%s (%d definitions, %d methods)\n", name, len(g.Definitions), len(g.Methods))
		for _, mn := range g.MethodNames() {
			m := g.Methods[mn]
			fmt.Fprintf(out, "  %-6s %s\n", m.Verb, m.FullName)
			printBuffers(out, "    params buffers:", m.Params)
			printBuffers(out, "    reply buffers:", m.Reply)
		}
	}
	return nil
}

func printBuffers(out io.Writer, head string, f *rpcschema.Fragment) {
	paths := f.BufferPaths()
	if len(paths) == 0 {
		return
	}
	parts := make([]string, len(paths))
	for i, p := range paths {
		parts[i] = p.String()
	}
	fmt.Fprintln(out, head, strings.Join(parts, " "))
}

func validateCmd(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	var cf commonFlags
	var method, input string
	var reply bool
	cf.bind(fs)
	fs.StringVar(&method, "method", "", "method full name, e.g. /object_api/methods/read_object_md")
	fs.StringVar(&input, "input", "", "JSON payload file")
	fs.BoolVar(&reply, "reply", false, "validate against the reply schema instead of params")
	_ = fs.Parse(args)
	if method == "" || input == "" {
		fs.Usage()
		return errors.New("-method and -input are required")
	}

	reg, err := cf.load(fs.Args())
	if err != nil {
		return err
	}
	m, ok := reg.Method(method)
	if !ok {
		return fmt.Errorf("unknown method %s", method)
	}
	payload, err := readPayload(input)
	if err != nil {
		return err
	}

	if reply {
		err = m.ValidateReply(payload, "CLI")
	} else {
		err = m.ValidateParams(payload, "CLI")
	}
	iss, ok := rpcschema.AsIssues(err)
	if !ok {
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "ok")
		return nil
	}
	b, err := json.MarshalIndent(iss, "", "  ")
	if err != nil {
		return fmt.Errorf("encode issues: %w", err)
	}
	fmt.Fprintln(out, string(b))
	return errContract
}

func readPayload(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	if err := apifile.CheckDuplicateKeys(data); err != nil {
		return nil, fmt.Errorf("decode payload %s: %w", path, err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode payload %s: %w", path, err)
	}
	return v, nil
}

func buffersCmd(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("buffers", flag.ExitOnError)
	var cf commonFlags
	var id string
	cf.bind(fs)
	fs.StringVar(&id, "id", "", "fragment id, e.g. /object_api/methods/upload_part/params")
	_ = fs.Parse(args)
	if id == "" {
		fs.Usage()
		return errors.New("-id is required")
	}

	reg, err := cf.load(fs.Args())
	if err != nil {
		return err
	}
	f, ok := reg.Fragment(id)
	if !ok {
		return fmt.Errorf("unknown fragment %s", id)
	}
	for _, p := range f.BufferPaths() {
		fmt.Fprintln(out, p.String())
	}
	return nil
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
