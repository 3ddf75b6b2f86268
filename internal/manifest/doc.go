// Package manifest handles parsing, defaulting, and validation of
// dockhand project manifests for the dockhand CLI.
//
// A manifest can be written in two formats, selected by extension:
//
//   - dockhand.json / dockhand.jsonc — JSONC (JSON with Comments) via
//     github.com/tidwall/jsonc, matching the common practice of
//     commenting hand-edited config files
//   - dockhand.yaml / dockhand.yml — YAML via gopkg.in/yaml.v3, parsed
//     strictly so unknown keys surface as errors
//
// The manifest is optional. A project laid out like the canonical bot
// repository (requirements.txt, src/main.py entrypoint, logs/ output
// directory, callback server on port 5000) builds with zero
// configuration; Default() supplies exactly that layout.
package manifest
