// Package audio plays the alert sound. It uses the beep library to play WAV,
// OGG and MP3 files with volume control.
package audio
