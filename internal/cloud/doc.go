// Package cloud implements a client for the Particle cloud REST API.
//
// The client covers device management (list, inspect, rename), firmware
// compilation and over-the-air flashing, and the server-sent event stream.
// Compile result interpretation itself lives in the build package; this
// package supplies the transport around it.
//
// # Authentication
//
// Every API request carries a bearer token obtained from a TokenSource.
// Two sources are provided: StaticToken wraps an existing token, and
// PasswordGrant performs the OAuth password grant against /oauth/token,
// caching the issued token until it nears expiry. A token failure
// propagates to the caller as an auth error; the client never retries
// authentication on its own.
//
// # Usage Example
//
//	client := cloud.NewClient(cloud.StaticToken(token))
//
//	result, err := client.CompileSources([]build.SourceFile{
//	    {Name: "app.ino", Contents: source},
//	}, cloud.CompileOptions{ProductID: 6})
//	if err != nil {
//	    log.Fatal(err) // infrastructure problem, not a compile failure
//	}
//
//	if result.Succeeded() {
//	    firmware, err := client.DownloadBinary(*result.Binary)
//	    ...
//	} else {
//	    for _, issue := range result.Failure.Issues {
//	        fmt.Printf("%s:%d:%d: %s: %s\n",
//	            issue.Filename, issue.Line, issue.Column, issue.Kind, issue.Message)
//	    }
//	}
//
// # Error Handling
//
// Errors are typed CloudError values distinguishing network, auth, HTTP,
// parse, and protocol-mismatch failures; use the Is* predicates or
// errors.As to branch on category. A compile failure is not an error at
// all: it is data on the BuildResult. Idempotent reads are retried with
// exponential backoff when the error category is retryable; mutating
// requests are attempted exactly once.
//
// # Thread Safety
//
// Client and both TokenSource implementations are safe for concurrent use.
package cloud
