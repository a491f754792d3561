// Package rpcschema defines RPC method contracts and the wire codec every
// call relies on.
//
// An API group declares, per method, an HTTP verb and JSON-Schema-like params
// and reply schemas, plus shared definitions. Registering the group
//
//   - closes every object schema against unknown properties (unless
//     additionalProperties is set explicitly),
//   - records every raw binary ("buffer") field and derives a codec that
//     splices those payloads out of the structured envelope and back,
//   - compiles each fragment once into a reusable validator.
//
// Fragment ids follow a fixed scheme that logs and tools key off:
//
//	/<api>/definitions/<name>
//	/<api>/methods/<method>/params
//	/<api>/methods/<method>/reply
//
// Typical usage:
//
//	reg := rpcschema.NewRegistry(rpcschema.WithLogger(logger))
//	reg.MustRegister(objectAPI)
//
//	m, _ := reg.Method("/object_api/methods/upload_part")
//	if err := m.ValidateParams(params, "SERVER"); err != nil { ... }
//	bufs := m.Params.Extract(params) // params now carries lengths
//	blob := codec.Concat(bufs)
//	// ... send params and blob, then on the receiving side:
//	err := m.Params.Reinsert(params, blob)
package rpcschema
