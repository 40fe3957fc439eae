package segment

import (
	"fmt"
	"image"
	"image/draw"
	"os"

	"gocv.io/x/gocv"
)

// imageToMat converts a Go image to an OpenCV Mat. Grayscale images become a
// single-channel Mat; everything else becomes 3-channel BGR. A nil or
// zero-size image is KindEmptyInput, a failed buffer handoff KindProcessing.
func imageToMat(op string, img image.Image) (gocv.Mat, error) {
	if img == nil {
		return gocv.NewMat(), newErrorf(KindEmptyInput, op, "nil image")
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return gocv.NewMat(), newErrorf(KindEmptyInput, op, "zero-size image %dx%d", w, h)
	}

	if g, ok := img.(*image.Gray); ok {
		pix := make([]byte, w*h)
		for y := 0; y < h; y++ {
			off := g.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			copy(pix[y*w:(y+1)*w], g.Pix[off:off+w])
		}
		view, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8U, pix)
		if err != nil {
			return gocv.NewMat(), newError(KindProcessing, op, err)
		}
		defer view.Close()
		return view.Clone(), nil
	}

	// Normalise to tightly packed RGBA so the buffer can be handed to OpenCV.
	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	view, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC4, rgba.Pix)
	if err != nil {
		return gocv.NewMat(), newError(KindProcessing, op, err)
	}
	defer view.Close()

	bgr := gocv.NewMat()
	gocv.CvtColor(view, &bgr, gocv.ColorRGBAToBGR)
	return bgr, nil
}

// decodeMat decodes PNG/JPEG/TIFF/BMP/WebP bytes with OpenCV.
func decodeMat(data []byte) (gocv.Mat, error) {
	if len(data) == 0 {
		return gocv.NewMat(), newErrorf(KindEmptyInput, "decode", "empty buffer")
	}
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		mat.Close()
		return gocv.NewMat(), newError(KindDecode, "decode", err)
	}
	if mat.Empty() {
		mat.Close()
		return gocv.NewMat(), newErrorf(KindDecode, "decode", "unrecognised image data (%d bytes)", len(data))
	}
	return mat, nil
}

// readMat loads and decodes an image file.
func readMat(path string) (gocv.Mat, error) {
	if path == "" {
		return gocv.NewMat(), newErrorf(KindEmptyInput, "read", "empty path")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return gocv.NewMat(), newError(KindDecode, "read", fmt.Errorf("%s: %w", path, err))
	}
	return decodeMat(data)
}

// checkSize enforces the MaxPixels cap.
func checkSize(op string, mat gocv.Mat, p Params) error {
	if mat.Empty() || mat.Rows() <= 0 || mat.Cols() <= 0 {
		return newErrorf(KindEmptyInput, op, "empty image")
	}
	if p.MaxPixels > 0 && mat.Rows()*mat.Cols() > p.MaxPixels {
		return newErrorf(KindTooLarge, op, "%dx%d exceeds %d pixels", mat.Cols(), mat.Rows(), p.MaxPixels)
	}
	return nil
}
