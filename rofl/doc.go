// Package rofl decodes League of Legends ROFL replay containers.
//
// A ROFL file is a fixed 288-byte header, a JSON metadata blob, a payload
// header carrying the match id and an encrypted key string, and a payload
// of independently encrypted, gzip-compressed segments (chunks and
// keyframes). Each decoded segment is a stream of variable-width event
// records ("sections") whose field widths are selected by a per-record
// configuration byte.
//
// The package operates on in-memory buffers only; callers load the file.
// Header parsing is cheap and synchronous. Segment decoding is independent
// per segment and safe to run concurrently (see DecodeSegments); section
// decoding within one segment is strictly sequential because records reuse
// the previous record's type and time when omitted.
package rofl
