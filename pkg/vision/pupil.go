// Package vision locates pupils in camera frames using OpenCV.
package vision

import (
	"image"
	"image/color"
	"image/draw"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-cockpit/pkg/perception"
)

// Config holds pupil detector configuration
type Config struct {
	BlurSize     int     // Gaussian kernel size (odd)
	BlockSize    int     // Adaptive threshold neighbourhood (odd)
	C            float32 // Adaptive threshold offset
	MinAreaRatio float64 // Smallest accepted blob, as a fraction of the eye crop
	MinCropSize  int     // Crops narrower or shorter than this are skipped
}

// DefaultConfig returns production defaults
func DefaultConfig() Config {
	return Config{
		BlurSize:     5,
		BlockSize:    11,
		C:            2,
		MinAreaRatio: 0.01,
		MinCropSize:  8,
	}
}

// PupilDetector finds the darkest blob inside an eye crop. It implements
// perception.PupilRefiner and is safe for concurrent use.
type PupilDetector struct {
	config Config
}

var _ perception.PupilRefiner = (*PupilDetector)(nil)

// NewPupilDetector creates a detector
func NewPupilDetector(cfg Config) *PupilDetector {
	return &PupilDetector{config: cfg}
}

// RefinePupil returns the pupil center in frame pixels.
func (d *PupilDetector) RefinePupil(frame image.Image, eye image.Rectangle) (perception.Point2, bool) {
	if frame == nil {
		return perception.Point2{}, false
	}
	eye = eye.Intersect(frame.Bounds())
	if eye.Dx() < d.config.MinCropSize || eye.Dy() < d.config.MinCropSize {
		return perception.Point2{}, false
	}

	// Copy the crop into a zero-origin gray buffer; draw handles the color conversion.
	crop := image.NewGray(image.Rect(0, 0, eye.Dx(), eye.Dy()))
	draw.Draw(crop, crop.Bounds(), frame, eye.Min, draw.Src)

	gray, err := gocv.ImageGrayToMatGray(crop)
	if err != nil {
		return perception.Point2{}, false
	}
	defer gray.Close()

	cx, cy, ok := d.locate(gray)
	if !ok {
		return perception.Point2{}, false
	}
	return perception.Point2{X: float64(eye.Min.X) + cx, Y: float64(eye.Min.Y) + cy}, true
}

// locate returns the centroid of the darkest sufficiently large blob.
func (d *PupilDetector) locate(gray gocv.Mat) (x, y float64, ok bool) {
	blurred := gocv.NewMat()
	defer blurred.Close()
	k := d.config.BlurSize
	gocv.GaussianBlur(gray, &blurred, image.Pt(k, k), 0, 0, gocv.BorderDefault)

	otsu := gocv.NewMat()
	defer otsu.Close()
	gocv.Threshold(blurred, &otsu, 0, 255, gocv.ThresholdBinaryInv|gocv.ThresholdOtsu)

	adaptive := gocv.NewMat()
	defer adaptive.Close()
	gocv.AdaptiveThreshold(blurred, &adaptive, 255, gocv.AdaptiveThresholdGaussian,
		gocv.ThresholdBinaryInv, d.config.BlockSize, d.config.C)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.BitwiseAnd(otsu, adaptive, &mask)

	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(3, 3))
	defer kernel.Close()
	gocv.MorphologyEx(mask, &mask, gocv.MorphOpen, kernel)
	gocv.MorphologyEx(mask, &mask, gocv.MorphClose, kernel)

	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	minArea := float64(gray.Rows()*gray.Cols()) * d.config.MinAreaRatio
	best := gocv.NewMat()
	defer best.Close()
	darkest := 256.0

	for i := 0; i < contours.Size(); i++ {
		if gocv.ContourArea(contours.At(i)) <= minArea {
			continue
		}
		fill := gocv.Zeros(gray.Rows(), gray.Cols(), gocv.MatTypeCV8U)
		gocv.DrawContours(&fill, contours, i, color.RGBA{R: 255, G: 255, B: 255}, -1)
		mean := gray.MeanWithMask(fill).Val1
		if mean < darkest {
			darkest = mean
			fill.CopyTo(&best)
		}
		fill.Close()
	}
	if best.Empty() {
		return 0, 0, false
	}

	m := gocv.Moments(best, true)
	if m["m00"] == 0 {
		return 0, 0, false
	}
	return m["m10"] / m["m00"], m["m01"] / m["m00"], true
}
