package segment

import (
	"image"

	"pagediff/pkg/geometry"

	"gocv.io/x/gocv"
)

// CropRegions cuts each region out of img and encodes it as a standalone PNG.
// Buffers come back in the same order as regions. Regions are clipped to the
// image; one that falls entirely outside it fails the whole call.
func CropRegions(img gocv.Mat, regions []geometry.RectInt) ([][]byte, error) {
	var bufs [][]byte
	err := guard("crop", func() error {
		var err error
		bufs, err = cropRegions(img, regions)
		return err
	})
	if err != nil {
		return nil, err
	}
	return bufs, nil
}

// CropRegionsFromImage is CropRegions for a decoded Go image.
func CropRegionsFromImage(img image.Image, regions []geometry.RectInt) ([][]byte, error) {
	var bufs [][]byte
	err := guard("crop", func() error {
		if len(regions) == 0 {
			return newErrorf(KindEmptyInput, "crop", "no regions")
		}
		mat, err := imageToMat("crop", img)
		if err != nil {
			return err
		}
		defer mat.Close()
		bufs, err = cropRegions(mat, regions)
		return err
	})
	if err != nil {
		return nil, err
	}
	return bufs, nil
}

// CropRegionsFromFile is CropRegions for an image on disk.
func CropRegionsFromFile(path string, regions []geometry.RectInt) ([][]byte, error) {
	var bufs [][]byte
	err := guard("crop", func() error {
		if len(regions) == 0 {
			return newErrorf(KindEmptyInput, "crop", "no regions")
		}
		mat, err := readMat(path)
		if err != nil {
			return err
		}
		defer mat.Close()
		bufs, err = cropRegions(mat, regions)
		return err
	})
	if err != nil {
		return nil, err
	}
	return bufs, nil
}

func cropRegions(img gocv.Mat, regions []geometry.RectInt) ([][]byte, error) {
	if img.Empty() {
		return nil, newErrorf(KindEmptyInput, "crop", "empty image")
	}
	if len(regions) == 0 {
		return nil, newErrorf(KindEmptyInput, "crop", "no regions")
	}

	bufs := make([][]byte, 0, len(regions))
	for i, r := range regions {
		clipped := r.Clamp(img.Cols(), img.Rows())
		if !clipped.Valid() {
			return nil, newErrorf(KindProcessing, "crop", "region %d %s lies outside the %dx%d image", i, r, img.Cols(), img.Rows())
		}

		roi := img.Region(clipped.ImageRect())
		buf, err := gocv.IMEncode(gocv.PNGFileExt, roi)
		roi.Close()
		if err != nil {
			return nil, newError(KindProcessing, "crop", err)
		}
		// Copy out of the native buffer before releasing it.
		data := append([]byte(nil), buf.GetBytes()...)
		buf.Close()

		bufs = append(bufs, data)
	}
	return bufs, nil
}
