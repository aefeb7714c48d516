// Package audio holds the host-side audio buffer and its file codecs.
// Buffers are channel-major float32 blocks; WAV files are written as 16-bit
// PCM and read back from any integer PCM depth. MP3 and Ogg Vorbis inputs can
// be loaded for offline processing. Temporary files used to stage audio are
// scoped through TempFile.
package audio
