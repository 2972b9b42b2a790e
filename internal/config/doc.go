// Package config loads the application settings.
//
// # Configuration Sources
//
// Settings are layered in this order, later sources winning:
//
//	1. Default values (Default)
//	2. A YAML file, SLIM_CONFIG_FILE or ./config.yaml
//	3. Environment variables prefixed with SLIM_
//
// # Environment Variables
//
//	SLIM_SERVER_PORT=8080
//	SLIM_LOGGING_LEVEL=debug
//	SLIM_DISPATCH_MAX_DEPTH=5
//	SLIM_DISPATCH_HANDLERS=ClientRouteNotFound=NotFoundHandler,Exception=ExceptionHandler
//	SLIM_RENDERER_CONVERTORS=gb2312,trim
//
// # Exception Handler Mapping
//
// dispatch.handlers is an ordered list. The first entry whose kind the
// raised exception belongs to wins, so specific kinds go first:
//
//	dispatch:
//	  handlers:
//	    - kind: ClientRouteNotFound
//	      handler: NotFoundHandler
//	    - kind: Client
//	      handler: ClientHandler
//	    - kind: Exception
//	      handler: ExceptionHandler
//
// Kind names are resolved against the exception taxonomy and handler
// identifiers against the container when the application starts.
package config
