// Package transport intercepts net/http clients by swapping their
// http.RoundTripper.
//
// New hooks http.DefaultTransport, which covers http.Get, http.Post and
// every client that leaves Transport unset. ForClient hooks one client.
// Uninstall puts back the exact RoundTripper that was there before, so a
// disabled engine leaves no trace.
//
// A matched request gets a synthesized *http.Response. Same-named response
// headers are joined with ", " into one value. A chunked body is served as
// real chunked framing; its Body implements chunked.ChunkReader so callers
// can read the declared pieces one at a time:
//
//	resp, _ := http.Get(url)
//	if cr, ok := resp.Body.(chunked.ChunkReader); ok {
//	    for {
//	        piece, err := cr.NextChunk()
//	        if err == io.EOF {
//	            break
//	        }
//	        ...
//	    }
//	}
//
// Unmatched requests fail with an error wrapping *engine.NoMatchError, or
// go to the original RoundTripper in network mode.
package transport
