// Package gojaeventloop provides a bridge between the [eventloop] package and
// the [goja] JavaScript runtime, exposing standard JavaScript globals that delegate to the underlying Go event loop.
//
// # Overview
//
// The [Adapter] wraps an [eventloop.Loop] and a [goja.Runtime], binding
// JavaScript APIs to their Go implementations. After calling [Adapter.Bind],
// JavaScript code running in the goja runtime has access to the timer and
// Promise globals listed below.
//
// # Bound JavaScript APIs
//
// Timer functions:
//   - setTimeout / clearTimeout
//   - setInterval / clearInterval
//   - queueMicrotask
//
// Promises:
//   - Promise (constructor, then/catch/finally, resolve, reject, all,
//     allSettled, any, race)
//
// Bind installs nothing else: setImmediate, Promise.try,
// Promise.withResolvers, AbortController, EventTarget, performance, console,
// TextEncoder/TextDecoder, atob/btoa, Blob, Headers, FormData, URL,
// localStorage/sessionStorage, crypto, structuredClone and DOMException are
// not provided.
//
// # Usage
//
//	loop, _ := eventloop.New()
//	defer loop.Close()
//	rt := goja.New()
//
//	adapter, _ := gojaeventloop.New(loop, rt)
//	_ = adapter.Bind()
//
//	loop.Submit(func() {
//	    rt.RunString(`
//	        setTimeout(() => { globalThis.greeting = "hello from JS"; }, 100);
//	    `)
//	})
//
//	loop.Run(context.Background())
//
// [eventloop]: github.com/scriptcore/runtime/eventloop
// [goja]: github.com/dop251/goja
package gojaeventloop
