package rawdecode

import (
	"strconv"
)

// Demosaic selects the interpolation algorithm (dcraw -q).
type Demosaic int

const (
	DemosaicBilinear Demosaic = iota
	DemosaicVNG
	DemosaicPPG
	DemosaicAHD
)

func (d Demosaic) String() string {
	switch d {
	case DemosaicBilinear:
		return "bilinear"
	case DemosaicVNG:
		return "vng"
	case DemosaicPPG:
		return "ppg"
	case DemosaicAHD:
		return "ahd"
	default:
		return "unknown"
	}
}

// ProfileVersion identifies DefaultProfile. Bump it whenever a field changes.
const ProfileVersion = "2024.1"

// Profile is the fixed parameter set handed to the decoder.
type Profile struct {
	Version string

	CameraWhiteBalance bool
	AutoBrightness     bool
	OutputBits         int
	Demosaic           Demosaic

	// Gamma curve as power and toe slope (BT.709 is 2.222 / 4.5).
	GammaPower float64
	GammaSlope float64

	// Chromatic aberration scale factors for the red and blue layers.
	ChromaticRed  float64
	ChromaticBlue float64

	// Wavelet denoise threshold and median filter pass count.
	NoiseThreshold int
	MedianPasses   int
}

// DefaultProfile returns the parameters every conversion uses.
func DefaultProfile() Profile {
	return Profile{
		Version:            ProfileVersion,
		CameraWhiteBalance: true,
		AutoBrightness:     false,
		OutputBits:         16,
		Demosaic:           DemosaicAHD,
		GammaPower:         2.222,
		GammaSlope:         4.5,
		ChromaticRed:       1.0,
		ChromaticBlue:      1.0,
		NoiseThreshold:     100,
		MedianPasses:       1,
	}
}

// Args renders the profile as dcraw command line flags. The RAW path is not
// included; callers append it.
func (p Profile) Args() []string {
	args := []string{"-c", "-T"}
	if p.CameraWhiteBalance {
		args = append(args, "-w")
	}
	if !p.AutoBrightness {
		args = append(args, "-W")
	}
	if p.OutputBits == 16 {
		args = append(args, "-6")
	}
	args = append(args, "-q", strconv.Itoa(int(p.Demosaic)))
	if p.GammaPower > 0 {
		args = append(args, "-g", formatFloat(p.GammaPower), formatFloat(p.GammaSlope))
	}
	if p.ChromaticRed > 0 && p.ChromaticBlue > 0 {
		args = append(args, "-C", formatFloat(p.ChromaticRed), formatFloat(p.ChromaticBlue))
	}
	if p.NoiseThreshold > 0 {
		args = append(args, "-n", strconv.Itoa(p.NoiseThreshold))
	}
	if p.MedianPasses > 0 {
		args = append(args, "-m", strconv.Itoa(p.MedianPasses))
	}
	return args
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
