// Package bridge detects and drives the native-transport bridges a hosting
// SuperApp exposes to its embedded web content.
//
// The hosting environment is abstracted behind the Host interface; the
// concrete implementation adapts whatever surface the WebView runtime exposes
// (injected globals, webkit message handlers, a React Native poster, etc).
// The Registry scans a Host and classifies what it finds into tagged
// Descriptors; the Invoker dispatches calls polymorphically over the
// transport tag.
package bridge

import "context"

// TransportType tags how a native bridge is reached from the web content.
type TransportType string

const (
	// TransportStandard is the standard injected payment API object.
	TransportStandard TransportType = "standard"

	// TransportIOSWebkit is an iOS WKWebView message handler; replies arrive
	// through the invoker's callback registry.
	TransportIOSWebkit TransportType = "ios-webkit"

	// TransportAndroid is a named Android JavascriptInterface object with
	// direct method dispatch.
	TransportAndroid TransportType = "android"

	// TransportReactNative is the React Native WebView postMessage poster;
	// replies arrive through the invoker's callback registry.
	TransportReactNative TransportType = "react-native"

	// TransportFlutter is the flutter_inappwebview object with direct method
	// dispatch.
	TransportFlutter TransportType = "flutter"
)

// Object is a host-exposed native object supporting direct method dispatch
// (the standard payment API, Android interfaces, the Flutter object).
type Object interface {
	// Methods returns the enumerable method names of the underlying object.
	Methods() []string

	// Invoke calls a method on the native object and returns its result.
	Invoke(ctx context.Context, method string, params any) (any, error)
}

// MessagePoster is a host-exposed handler that accepts one-way messages (iOS
// webkit handlers, the React Native WebView). Replies are delivered
// asynchronously to the callback registered under the message's callback ID.
type MessagePoster interface {
	PostMessage(payload []byte) error
}

// Host is the view of the embedding environment that the Registry scans.
//
// Every accessor reflects the live state of the environment - bridges can be
// injected after page load, so results are never cached by the Host.
type Host interface {
	// UserAgent returns the host user-agent string (used once per session for
	// platform detection).
	UserAgent() string

	// PaymentObject returns the standard injected payment API, if present.
	PaymentObject() (Object, bool)

	// MessageHandlerNames lists the iOS webkit message handler names.
	MessageHandlerNames() []string

	// MessageHandler returns the poster for a named iOS webkit handler.
	MessageHandler(name string) (MessagePoster, bool)

	// AndroidObject returns a named Android bridge object, if present.
	AndroidObject(name string) (Object, bool)

	// ReactNativeWebView returns the React Native poster, if present.
	ReactNativeWebView() (MessagePoster, bool)

	// FlutterInAppWebView returns the Flutter bridge object, if present.
	FlutterInAppWebView() (Object, bool)
}
