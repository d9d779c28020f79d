// Package config loads fontman's user configuration.
//
// The configuration is a Lua file evaluated in the same sandbox as the font
// catalog, with the read-only platform table available:
//
//	fontman = {
//	  fonts_dir = ".fonts",            -- relative to home, or absolute
//	  download_dir = ".",              -- where fetched archives are written
//	  catalog_file = "",               -- optional catalog override
//	  refresh = {
//	    command = "fc-cache",
//	    args = { "-f", "-v" },
//	    enabled = platform.is_linux,
//	  },
//	}
//
// The file is read from $FONTMAN_CONFIG when set, otherwise from
// fontman/config.lua under the user configuration directory. A missing
// default file yields Default(); an explicitly named file must exist.
// Every field is optional. A field of the wrong type is a *ParseError.
//
// Paths beginning with "~/" are expanded against the home directory.
package config
