package seqplay

import "image"

// Frame is one still image of a sequence.
// A frame whose asset failed to load has no Image and is drawn as a placeholder.
type Frame struct {
	URL            string
	Image          image.Image
	DrawOperations []DrawOperation
}

func newImageFrame(url string, img image.Image) *Frame {
	return &Frame{
		URL:            url,
		Image:          img,
		DrawOperations: []DrawOperation{NewDrawImageOperation(img, 1)},
	}
}

func newPlaceholderFrame(url string) *Frame {
	return &Frame{URL: url}
}

// Placeholder reports whether the frame stands in for an asset that failed to load.
func (frame *Frame) Placeholder() bool {
	return frame.Image == nil
}

// Draw draws a frame.
func (frame *Frame) Draw(paintEngine PaintEngine) error {
	for _, drawOperation := range frame.DrawOperations {
		err := drawOperation.Draw(paintEngine)
		if err != nil {
			return err
		}
	}
	return nil
}

// release drops the decoded image so it can be collected.
func (frame *Frame) release() {
	frame.Image = nil
	frame.DrawOperations = nil
}
