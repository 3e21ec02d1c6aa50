// Package request builds an immutable snapshot of an incoming HTTP request
// for the security stages.
//
// FromHTTP reads at most MaxBody bytes of the body, parses urlencoded,
// multipart and JSON payloads into flat key/value maps, and puts the bytes
// back so the downstream handler still sees the complete body.
//
//	req, err := request.FromHTTP(r, request.WithMaxBody(4<<20))
//	if err != nil {
//		// body could not be read
//	}
//	for _, in := range req.Inputs() {
//		fmt.Println(in.Source, in.Key, in.Value)
//	}
package request
