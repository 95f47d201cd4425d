// Package internal contains the implementation packages of the lander CLI.
//
// # Package Organization
//
//   - config: Project configuration (Viper) and the site configuration document
//   - errors: Typed pipeline errors and the per-batch issue collector
//   - logging: Structured logger over log/slog
//   - resolver: Maps a page template to the data it is rendered with
//   - scanner: Template and asset discovery with glob patterns
//   - renderer: Handlebars engine with partials and helpers
//   - minifiers: Media-type keyed minification
//   - build: Task graph, asset stages, page rendering and optimization
//   - watcher: Debounced file watching routed to build tasks
//   - websocket: Live-reload hub
//   - server: Development server for the output tree
//   - deploy: FTP and rsync upload of the output tree
//   - validation: Checks for paths, commands and URLs taken from configuration
//   - version: Build information
//
// # Data Flow
//
// The scanner enumerates templates below paths.templates. For each one the
// resolver derives {site, language} from its location, loads the locale data
// file and injects the site-wide values; the renderer turns template and data
// into a page, which the build package writes below paths.dist. Asset stages
// run beside page rendering and share nothing with it but the output tree.
//
// Everything reads through an afero.Fs, so tests run on an in-memory tree.
package internal
