// Package docker executes connectors as containers through the docker CLI.
//
// Containers run the connector's own entrypoint via a bash shim so the
// image's AIRBYTE_ENTRYPOINT variable resolves inside the container.
// Configuration documents are bind-mounted under /secrets, the prior
// state checkpoint at /state.json. Protocol output is streamed from the
// container's standard output one line at a time.
//
// Adapters:
//   - Client: runtime ping, image resolution, check/read/write operations
//
// The CLI binary is injectable ("docker" by default) so podman or a test
// stub can stand in.
package docker
