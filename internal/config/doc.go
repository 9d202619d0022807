// Package config loads the Wi-Fi manager configuration.
//
// Settings come from, in increasing priority: built-in defaults matching the
// device firmware, a YAML file, and WIFIAPP_* environment variables
// (WIFIAPP_ACCESS_POINT_SSID overrides access_point.ssid). The result is
// read once at process start and treated as immutable.
//
// # Configuration File Location
//
// When no path is given the file is looked up in the platform config dir:
//   - Linux: $XDG_CONFIG_HOME/wifiapp/config.yaml or $HOME/.config/wifiapp/config.yaml
//   - macOS: $HOME/.config/wifiapp/config.yaml
//   - Windows: %LOCALAPPDATA%\wifiapp\config.yaml
//
// Saved station credentials live next to it in credentials.yaml unless
// credentials.path says otherwise.
//
// # Usage Example
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if errs := cfg.Validate(); len(errs) > 0 {
//	    log.Fatal(errors.Join(errs...))
//	}
//	ap, _ := cfg.NetifAccessPoint()
package config
