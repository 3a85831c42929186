package bridge

import (
	"fmt"
	"strings"
)

// Platform is the coarse host platform derived from the user-agent string.
type Platform string

const (
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
	PlatformWeb     Platform = "web"
)

// standardObjectName is the global name of the standard payment API.
const standardObjectName = "payment"

// androidBridgeNames is the allow-list of known Android bridge object names,
// checked in order.
var androidBridgeNames = []string{
	"Android",
	"AndroidBridge",
	"NativeApp",
	"AppBridge",
	"JSBridge",
	"SuperApp",
}

// paymentMethodKeywords mark a bridge method as payment-capable when matched
// case-insensitively as a substring.
var paymentMethodKeywords = []string{"pay", "auth", "token"}

// Descriptor describes one detected bridge. Descriptors are produced fresh on
// every scan and are only valid for the duration of one payment attempt.
type Descriptor struct {
	// Name is the host-side identifier: the global object name, or the
	// message handler name for ios-webkit bridges.
	Name string `json:"name"`

	// Transport tags how the bridge is reached.
	Transport TransportType `json:"transport"`

	// Methods is the enumerable method name set of the underlying object
	// (may be empty).
	Methods []string `json:"methods"`

	// PaymentMethods holds the method names that matched the payment
	// keywords. Only set by FindPaymentBridge for non-standard bridges.
	PaymentMethods []string `json:"paymentMethods,omitempty"`
}

// Registry scans a Host for available native bridges.
//
// Scans are deliberately not cached: the SuperApp can inject a bridge after
// page load, so every check inspects the live environment. Platform detection
// happens once - the user agent cannot change mid-session.
type Registry struct {
	host     Host
	platform Platform
}

// NewRegistry creates a Registry for the given host environment.
func NewRegistry(host Host) *Registry {
	return &Registry{
		host:     host,
		platform: DetectPlatform(host.UserAgent()),
	}
}

// DetectPlatform derives the coarse platform from a user-agent string.
func DetectPlatform(userAgent string) Platform {
	ua := strings.ToLower(userAgent)
	if strings.Contains(ua, "android") {
		return PlatformAndroid
	}
	if strings.Contains(ua, "ipad") || strings.Contains(ua, "iphone") || strings.Contains(ua, "ipod") {
		return PlatformIOS
	}
	return PlatformWeb
}

// Platform returns the platform detected at construction time.
func (r *Registry) Platform() Platform { return r.platform }

// Scan inspects the host environment and returns descriptors for every
// detected bridge, in priority order: standard, ios-webkit, android,
// react-native, flutter. The scan is synchronous and side-effect free.
func (r *Registry) Scan() []Descriptor {
	var bridges []Descriptor

	if obj, ok := r.host.PaymentObject(); ok {
		bridges = append(bridges, Descriptor{
			Name:      standardObjectName,
			Transport: TransportStandard,
			Methods:   obj.Methods(),
		})
	}

	for _, name := range r.host.MessageHandlerNames() {
		bridges = append(bridges, Descriptor{
			Name:      name,
			Transport: TransportIOSWebkit,
			Methods:   []string{"postMessage"},
		})
	}

	for _, name := range androidBridgeNames {
		if obj, ok := r.host.AndroidObject(name); ok {
			bridges = append(bridges, Descriptor{
				Name:      name,
				Transport: TransportAndroid,
				Methods:   obj.Methods(),
			})
		}
	}

	if _, ok := r.host.ReactNativeWebView(); ok {
		bridges = append(bridges, Descriptor{
			Name:      "ReactNativeWebView",
			Transport: TransportReactNative,
			Methods:   []string{"postMessage"},
		})
	}

	if obj, ok := r.host.FlutterInAppWebView(); ok {
		bridges = append(bridges, Descriptor{
			Name:      "flutter_inappwebview",
			Transport: TransportFlutter,
			Methods:   obj.Methods(),
		})
	}

	return bridges
}

// FindPaymentBridge returns the bridge to use for payment calls.
//
// The standard payment object always wins when present, regardless of what
// else was detected. Otherwise the first bridge exposing a method matching a
// payment keyword is returned, annotated with the matched method names.
func (r *Registry) FindPaymentBridge() (Descriptor, error) {
	bridges := r.Scan()

	for _, b := range bridges {
		if b.Transport == TransportStandard {
			return b, nil
		}
	}

	for _, b := range bridges {
		var matched []string
		for _, m := range b.Methods {
			lower := strings.ToLower(m)
			for _, keyword := range paymentMethodKeywords {
				if strings.Contains(lower, keyword) {
					matched = append(matched, m)
					break
				}
			}
		}
		if len(matched) > 0 {
			b.PaymentMethods = matched
			return b, nil
		}
	}

	return Descriptor{}, NewNoBridgeError(
		fmt.Sprintf("no payment bridge found in host environment (platform %s, %d bridges scanned)", r.platform, len(bridges)))
}

// IsWebView reports whether the web content appears to be running inside a
// native container rather than a plain browser.
func (r *Registry) IsWebView() bool {
	return r.platform != PlatformWeb || len(r.Scan()) > 0
}

// DebugInfo is a snapshot of the detection state for diagnostic surfaces.
type DebugInfo struct {
	Platform      Platform     `json:"platform"`
	IsWebView     bool         `json:"isWebView"`
	UserAgent     string       `json:"userAgent"`
	Bridges       []Descriptor `json:"bridges"`
	PaymentBridge *Descriptor  `json:"paymentBridge,omitempty"`
}

// Debug returns the current detection state.
func (r *Registry) Debug() DebugInfo {
	info := DebugInfo{
		Platform:  r.platform,
		IsWebView: r.IsWebView(),
		UserAgent: r.host.UserAgent(),
		Bridges:   r.Scan(),
	}
	if b, err := r.FindPaymentBridge(); err == nil {
		info.PaymentBridge = &b
	}
	return info
}
