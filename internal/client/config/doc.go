// Package config loads runtime configuration for the chat CLI.
//
// Sources, later ones winning: built-in defaults, an optional JSON file
// selected with -c or -config, then command-line flags.
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "database_path": "gophchat.db",
//	  "page_size": 50,
//	  "request_timeout": "10s"
//	}
package config
