// Package remote implements the remote inference backend.
//
// Processing stages the buffer as a 16-bit PCM WAV file, POSTs it base64
// encoded in a JSON body to the service endpoint, and decodes the WAV file
// returned in the response. Both staging files are deleted on every exit
// path, and the caller's buffer is left untouched unless the whole exchange
// succeeds.
package remote
