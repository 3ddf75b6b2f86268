// Package build implements build-context staging and image building for
// the dockhand CLI.
//
// This package handles:
//   - Staging a throwaway build context containing only the dependency
//     manifest, the source tree, and the generated Dockerfile/.dockerignore
//   - Excluding env files, bytecode caches and symlinks from the context
//     so they cannot reach the image
//   - Driving `docker build` with dockhand image labels (managed-by,
//     project, build ID) and reporting a typed failure with the output tail
//
// The docker binary is resolved via github.com/cli/safeexec and executed
// as a child process; build IDs come from github.com/google/uuid.
package build
