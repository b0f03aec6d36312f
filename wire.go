package chanrelay

import (
	"encoding/json"
	"strconv"
)

// defaultJSONPCallback is used whenever a request omits cb.
const defaultJSONPCallback = "jsonp"

// jsonString JSON-escapes b as a quoted string literal, e.g. `"a\"b"`.
// content is arbitrary client-supplied text, so every frame builder below
// runs it through this instead of interpolating it raw into the body.
func jsonString(b []byte) string {
	out, _ := json.Marshal(string(b))
	return string(out)
}

func wrapJSONP(cb string, body []byte) []byte {
	if cb == "" {
		return append(append([]byte{}, body...), '\n')
	}
	out := make([]byte, 0, len(cb)+len(body)+4)
	out = append(out, cb...)
	out = append(out, '(')
	out = append(out, body...)
	out = append(out, ')', ';', '\n')
	return out
}

// signFrame builds the {type: "sign", ...} response to a Sign call. cid and
// seq are numbers here, unlike the subscriber frames below -- the two call
// paths grew independently and the wire format keeps that inconsistency
// rather than risk breaking either kind of existing client.
func signFrame(cb string, cid int, seqMin seq, token string, expires, subTimeout int) []byte {
	body := `{type: "sign", cid: ` + strconv.Itoa(cid) +
		`, seq: ` + strconv.FormatUint(uint64(seqMin), 10) +
		`, token: "` + token + `"` +
		`, expires: ` + strconv.Itoa(expires) +
		`, sub_timeout: ` + strconv.Itoa(subTimeout) + `}`
	return wrapJSONP(cb, []byte(body))
}

// subErrorFrame builds the in-band 404/401/429 error frames for the sub
// path. HTTP status always stays 200 for these; the error is transported
// inside the JSONP body because a cross-origin JSONP client cannot observe
// a non-200 status.
func subErrorFrame(cb, errType string, cid int, content string) []byte {
	body := `{type: "` + errType + `", cid: "` + strconv.Itoa(cid) +
		`", seq: "0", content: ` + jsonString([]byte(content)) + `}`
	return wrapJSONP(cb, []byte(body))
}

// dataObject builds a single {type: "data"|"close", cid, seq, content}
// object, unwrapped -- used both standalone (a single push to a parked
// subscriber) and joined into the resume array.
func dataObject(typ string, cid int, sq seq, content []byte) []byte {
	return []byte(`{type: "` + typ + `", cid: "` + strconv.Itoa(cid) +
		`", seq: "` + strconv.FormatUint(uint64(sq), 10) +
		`", content: ` + jsonString(content) + `}`)
}

// resumeFrame builds the cb([...]) response for a sub call whose seq can be
// satisfied entirely from the ring, without parking.
func resumeFrame(cb string, objects [][]byte) []byte {
	body := make([]byte, 0, 2+len(objects)*32)
	body = append(body, '[')
	for i, o := range objects {
		if i > 0 {
			body = append(body, ',')
		}
		body = append(body, o...)
	}
	body = append(body, ']')
	return wrapJSONP(cb, body)
}

// pushFrame builds the cb({...}); frame delivered to a single parked
// subscriber at fan-out or channel-close time.
func pushFrame(cb, typ string, cid int, sq seq, content []byte) []byte {
	return wrapJSONP(cb, dataObject(typ, cid, sq, content))
}

// okFrame builds the publisher-facing {type: "ok"} acknowledgement.
func okFrame(cb string) []byte {
	return wrapJSONP(cb, []byte(`{type: "ok"}`))
}

// pingFrame builds the {type: "ping", sub_timeout} response.
func pingFrame(cb string, subTimeout int) []byte {
	body := `{type: "ping", sub_timeout: ` + strconv.Itoa(subTimeout) + `}`
	return wrapJSONP(cb, []byte(body))
}

// noopFrame builds the sweeper's keep-alive frame for a timed-out poll.
func noopFrame(cb string, cid int, noopSeq seq) []byte {
	body := `{type: "noop", cid: "` + strconv.Itoa(cid) +
		`", seq: "` + strconv.FormatUint(uint64(noopSeq), 10) + `"}`
	return wrapJSONP(cb, []byte(body))
}

// infoFrame builds the per-channel {cname, subscribers} response (plain
// text, no JSONP wrapping -- info never takes a cb parameter).
func infoFrame(cname string, subscribers int) []byte {
	return []byte(`{cname: "` + cname + `", subscribers: ` + strconv.Itoa(subscribers) + "}\n")
}

// globalInfoFrame builds the server-wide {channels, subscribers} response.
func globalInfoFrame(channels, subscribers int) []byte {
	return []byte(`{channels: ` + strconv.Itoa(channels) + `, subscribers: ` + strconv.Itoa(subscribers) + "}\n")
}

// checkFrame builds check's {"name": 1} or {} response.
func checkFrame(cname string, live bool) []byte {
	if !live {
		return []byte("{}\n")
	}
	return []byte(`{"` + cname + `": 1}` + "\n")
}

// closeAckFrame builds close's plain-text "ok <seq_next>\n" response.
func closeAckFrame(seqNext seq) []byte {
	return []byte("ok " + strconv.FormatUint(uint64(seqNext), 10) + "\n")
}
