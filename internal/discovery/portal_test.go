package discovery

import "testing"

func TestPortalString(t *testing.T) {
	p := &Portal{
		Instance: "wifiapp",
		Hostname: "device.local.",
		IP:       "192.168.0.1",
		Port:     80,
		Metadata: map[string]string{TXTKeyAPSSID: "ESP32_AP", TXTKeyVersion: "1.0.0"},
	}

	want := `wifiapp (device.local.) at 192.168.0.1:80, AP "ESP32_AP"`
	if p.String() != want {
		t.Errorf("String() = %q, want %q", p.String(), want)
	}
	if p.Version() != "1.0.0" {
		t.Errorf("Version() = %q", p.Version())
	}

	p.Metadata = nil
	if p.String() != "wifiapp (device.local.) at 192.168.0.1:80" {
		t.Errorf("String() without TXT = %q", p.String())
	}
	if p.GetMetadata("missing") != "" {
		t.Error("GetMetadata() on nil map should be empty")
	}
}

func TestPortalBaseURL(t *testing.T) {
	tests := []struct {
		ip   string
		port int
		want string
	}{
		{"192.168.0.1", 80, "http://192.168.0.1:80"},
		{"10.0.0.5", 8080, "http://10.0.0.5:8080"},
		{"fe80::1", 80, "http://[fe80::1]:80"},
	}
	for _, tt := range tests {
		p := &Portal{IP: tt.ip, Port: tt.port}
		if got := p.BaseURL(); got != tt.want {
			t.Errorf("BaseURL() = %q, want %q", got, tt.want)
		}
	}
}
