package audio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nopickie/nopickie/internal/config"
)

// writeSilence writes a short stereo WAV file of n samples.
func writeSilence(t *testing.T, path string, n int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	left := n
	silence := beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		if left == 0 {
			return 0, false
		}
		k := min(len(samples), left)
		for i := range k {
			samples[i] = [2]float64{}
		}
		left -= k
		return k, true
	})

	format := beep.Format{SampleRate: 8000, NumChannels: 2, Precision: 2}
	require.NoError(t, wav.Encode(f, silence, format))
}

func TestDecodeFile_WAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ding.wav")
	writeSilence(t, path, 800)

	buffer, err := decodeFile(path)
	require.NoError(t, err)
	assert.Equal(t, 800, buffer.Len())
	assert.Equal(t, beep.SampleRate(8000), buffer.Format().SampleRate)
}

func TestDecodeFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := decodeFile(filepath.Join(dir, "missing.wav"))
	assert.ErrorContains(t, err, "failed to open")

	flac := filepath.Join(dir, "ding.flac")
	require.NoError(t, os.WriteFile(flac, []byte("fLaC"), 0644))
	_, err = decodeFile(flac)
	assert.ErrorContains(t, err, "unsupported audio format")

	bogus := filepath.Join(dir, "bogus.wav")
	require.NoError(t, os.WriteFile(bogus, []byte("not a wav"), 0644))
	_, err = decodeFile(bogus)
	assert.ErrorContains(t, err, "failed to decode")
}

func TestPlayer_LoadCachesUntilModified(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ding.wav")
	writeSilence(t, path, 400)

	p := NewPlayer(nil)
	first, err := p.load(path)
	require.NoError(t, err)
	again, err := p.load(path)
	require.NoError(t, err)
	assert.Same(t, first, again)

	writeSilence(t, path, 200)
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, os.Chtimes(path, info.ModTime(), info.ModTime().Add(1e9)))

	reloaded, err := p.load(path)
	require.NoError(t, err)
	assert.NotSame(t, first, reloaded)
	assert.Equal(t, 200, reloaded.Len())
}

func TestPlayer_SetVolumeClamps(t *testing.T) {
	p := NewPlayer(nil)
	p.SetVolume(1.5)
	assert.Equal(t, 1.0, p.Volume())
	p.SetVolume(-1)
	assert.Equal(t, 0.0, p.Volume())
}

func TestVolumeToExponent(t *testing.T) {
	assert.InDelta(t, -1.0, volumeToExponent(0.5), 1e-9)
	assert.InDelta(t, -2.0, volumeToExponent(0.25), 1e-9)
	assert.Equal(t, 0.0, volumeToExponent(1))
	assert.Equal(t, -10.0, volumeToExponent(0))
}

func TestAlerter_DisabledIsSilent(t *testing.T) {
	a := NewAlerter(config.AudioConfig{Enabled: false, Volume: 50}, "/nonexistent.wav", nil)
	assert.False(t, a.Enabled())
	assert.NoError(t, a.Play())
	assert.Equal(t, 0.5, a.player.Volume())

	a.UpdateConfig(config.AudioConfig{Enabled: true, Volume: 100}, "")
	assert.False(t, a.Enabled(), "no sound file configured")
	assert.NoError(t, a.Play())
}

func TestAlerter_MissingFile(t *testing.T) {
	a := NewAlerter(config.AudioConfig{Enabled: true, Volume: 80}, filepath.Join(t.TempDir(), "gone.wav"), nil)
	assert.True(t, a.Enabled())
	assert.ErrorContains(t, a.Play(), "failed to stat")
}
