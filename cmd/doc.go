// Package cmd provides the command-line interface for lander.
//
// # Available Commands
//
//   - build: Clean and build every asset, optionally for production
//   - run: Run one named task of the build graph
//   - tasks: List the registered tasks
//   - clean: Remove the output directory
//   - serve: Build, serve the output with live reload and rebuild on change
//   - watch: Rebuild on change without serving
//   - deploy: Build for production and upload the output
//   - resolve: Print the data a template is rendered with
//   - config: Validate or show the configuration
//   - version: Show version information
//
// # Command Examples
//
//	// Production build
//	lander build --optimized
//
//	// Rebuild only the pages
//	lander run templates
//
//	// Development server on another port
//	lander serve --port 8080
//
//	// Check which data a page receives
//	lander resolve ub/de/index.hbs
//
//	// List what a deploy would upload
//	lander deploy --dry-run
//
// # Configuration
//
// Two documents are read. The project configuration (lander.yml) is loaded
// through Viper; every key can be overridden with a LANDER_ prefixed
// environment variable, LANDER_TEMPLATES_WORKERS=8 for templates.workers.
// The site configuration named by site_config (data.yml by default)
// describes the marketing sites.
package cmd
