// Package httpclient is a typed HTTP API client.
//
// Callers describe a call declaratively with one of the request factories
// (Basic, Post, Put, Delete) and send it with Send or Fetch, receiving a
// decoded value or a classified *Error. The transport, TLS and resilience
// settings live on the Client; cross-cutting behavior such as logging,
// authentication or tracing is attached as Adapters.
//
// # Basic Usage
//
//	base, _ := url.Parse("https://api.example.com/v1")
//	client, err := httpclient.New(httpclient.Config{Timeout: 10 * time.Second},
//	    httpclient.WithAdapters(
//	        httpclient.NewAuthAdapter(httpclient.BearerAuth(token), log),
//	        httpclient.NewLoggingAdapter(httpclient.LogInfo, httpclient.LoggerSink(log)),
//	    ))
//
//	item, err := httpclient.Send[Item](ctx, client,
//	    httpclient.Post(base, "items", &NewItem{Name: "a"}))
//	switch {
//	case httpclient.IsExpiredCredential(err):
//	    // re-authenticate
//	case httpclient.IsNoResult(err):
//	    // the server answered with a non-success status envelope
//	}
//
// # Success and Failure
//
// Send treats only HTTP 200 as success: 401 is an expired credential, 5xx a
// server error and anything else a request error. A body that does not match
// the expected type is re-read as a {"status": ...} envelope; a status other
// than "Success" is reported as a no-result error.
//
// Fetch is the lightweight path: no adapters, any 2xx is a success.
package httpclient
