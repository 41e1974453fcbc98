package device

import "testing"

const (
	uaIPhoneSafari  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1"
	uaIPhoneChrome  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) CriOS/123.0.6312.52 Mobile/15E148 Safari/604.1"
	uaAndroidChrome = "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.6312.40 Mobile Safari/537.36"
	uaMacSafari     = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15"
	uaWindowsEdge   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36 Edg/123.0.2420.53"
	uaLinuxFirefox  = "Mozilla/5.0 (X11; Linux x86_64; rv:124.0) Gecko/20100101 Firefox/124.0"
)

var allProbes = Probes{ServiceWorker: true, PushManager: true, Notification: true}

func TestDetectFamilies(t *testing.T) {
	tests := []struct {
		name        string
		ua          string
		wantOS      OSFamily
		wantBrowser BrowserFamily
	}{
		{"iphone safari", uaIPhoneSafari, OSiOS, BrowserSafari},
		{"iphone chrome", uaIPhoneChrome, OSiOS, BrowserChrome},
		{"android chrome", uaAndroidChrome, OSAndroid, BrowserChrome},
		{"mac safari", uaMacSafari, OSMac, BrowserSafari},
		{"windows edge", uaWindowsEdge, OSWindows, BrowserEdge},
		{"linux firefox", uaLinuxFirefox, OSLinux, BrowserFirefox},
		{"unknown", "curl/8.4.0", OSOther, BrowserOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Detect(tt.ua, allProbes)
			if got.OSFamily != tt.wantOS {
				t.Errorf("os = %q, want %q", got.OSFamily, tt.wantOS)
			}
			if got.BrowserFamily != tt.wantBrowser {
				t.Errorf("browser = %q, want %q", got.BrowserFamily, tt.wantBrowser)
			}
		})
	}
}

func TestNativePushRequiresAllProbes(t *testing.T) {
	probes := []Probes{
		{ServiceWorker: false, PushManager: true, Notification: true},
		{ServiceWorker: true, PushManager: false, Notification: true},
		{ServiceWorker: true, PushManager: true, Notification: false},
	}
	for _, p := range probes {
		if Detect(uaAndroidChrome, p).NativePushUsable {
			t.Errorf("native push usable with probes %+v", p)
		}
	}
	if !Detect(uaAndroidChrome, allProbes).NativePushUsable {
		t.Error("native push unusable with all probes present")
	}
}

func TestNeedsRelayPolicy(t *testing.T) {
	tests := []struct {
		name string
		ua   string
		p    Probes
		want bool
	}{
		{"android chrome, full support", uaAndroidChrome, allProbes, false},
		{"windows edge, full support", uaWindowsEdge, allProbes, false},
		{"linux firefox, full support", uaLinuxFirefox, allProbes, false},
		{"missing apis always relay", uaAndroidChrome, Probes{}, true},
		{"ios always relay", uaIPhoneSafari, allProbes, true},
		{"ios chrome still relay", uaIPhoneChrome, allProbes, true},
		{"mac safari in tab relays", uaMacSafari, allProbes, true},
		{"mac safari installed goes native", uaMacSafari,
			Probes{ServiceWorker: true, PushManager: true, Notification: true, Standalone: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NeedsRelay(Detect(tt.ua, tt.p)); got != tt.want {
				t.Errorf("NeedsRelay = %v, want %v", got, tt.want)
			}
		})
	}
}
