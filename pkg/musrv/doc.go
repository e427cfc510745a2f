// Package musrv is a client for the folder-listing music server.
//
// The server exposes three read-only endpoints:
//
//	GET /api/folder?path=<rel>       folder listing (JSON)
//	GET /api/folder.m3u8?path=<rel>  extended M3U of every track under <rel>
//	GET /admin/rescan                rescan the library, answers "ok"
//
// Paths are relative to the library root; the empty path is the root.
//
// Example usage:
//
//	import "github.com/jfmyers9/crate/pkg/musrv"
//
//	client, err := musrv.NewClient(musrv.Config{
//	    BaseURL: "http://nas.local:8080/",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	folder, err := client.Folder(ctx, "jazz/blue note")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, album := range folder.Albums {
//	    fmt.Println(album.Path)
//	}
//
//	text, err := client.Playlist(ctx, folder.M3U8)
//
// Requests are retried with exponential backoff (1s doubling, capped at
// 30s) on network errors and 5xx responses. Non-retryable HTTP failures
// are returned as *Error.
package musrv
