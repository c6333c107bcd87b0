package embedding

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

// Model input resolution and ImageNet per-channel normalization constants.
const (
	inputWidth  = 128
	inputHeight = 256
	channels    = 3
)

var (
	imagenetMean = [channels]float32{0.485, 0.456, 0.406}
	imagenetStd  = [channels]float32{0.229, 0.224, 0.225}
)

// Tensor is a CHW float32 image tensor ready for model inference.
type Tensor struct {
	Data     []float32
	Channels int
	Height   int
	Width    int
}

// Shape returns the NCHW shape of the tensor with a batch dimension of one.
func (t Tensor) Shape() []int {
	return []int{1, t.Channels, t.Height, t.Width}
}

// Preprocess decodes an image crop, resizes it to the model input resolution
// and applies ImageNet mean/std normalization, producing a CHW tensor.
func Preprocess(crop []byte) (Tensor, error) {
	img, _, err := image.Decode(bytes.NewReader(crop))
	if err != nil {
		return Tensor{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	resized := image.NewRGBA(image.Rect(0, 0, inputWidth, inputHeight))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, img.Bounds(), draw.Src, nil)

	t := Tensor{
		Data:     make([]float32, channels*inputHeight*inputWidth),
		Channels: channels,
		Height:   inputHeight,
		Width:    inputWidth,
	}
	plane := inputHeight * inputWidth
	for y := 0; y < inputHeight; y++ {
		for x := 0; x < inputWidth; x++ {
			i := resized.PixOffset(x, y)
			idx := y*inputWidth + x
			for c := 0; c < channels; c++ {
				v := float32(resized.Pix[i+c]) / 255.0
				t.Data[c*plane+idx] = (v - imagenetMean[c]) / imagenetStd[c]
			}
		}
	}
	return t, nil
}
