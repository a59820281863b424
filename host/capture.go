package host

import (
	"fmt"
	"sort"
	"sync"
)

const maxCapturedImages = 20

// Image is one display image captured from the host session.
type Image struct {
	MediaType string // e.g. "image/png"
	Data      string // base64 payload
	Cell      int    // execution count that produced it, 0 if unknown
}

// Collector buffers display images emitted by host code so the next turn
// can attach them to the prompt. Holds at most the 20 most recent.
type Collector struct {
	mu     sync.Mutex
	images []Image
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Add buffers a captured image, evicting the oldest past the cap.
func (c *Collector) Add(img Image) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.images = append(c.images, img)
	if len(c.images) > maxCapturedImages {
		c.images = c.images[len(c.images)-maxCapturedImages:]
	}
}

// Drain returns all buffered images and clears the buffer.
func (c *Collector) Drain() []Image {
	c.mu.Lock()
	defer c.mu.Unlock()
	images := c.images
	c.images = nil
	return images
}

// Summary describes a drained batch of images for the user.
func Summary(images []Image) string {
	if len(images) == 0 {
		return ""
	}
	seen := map[int]bool{}
	var cells []int
	for _, img := range images {
		if img.Cell != 0 && !seen[img.Cell] {
			seen[img.Cell] = true
			cells = append(cells, img.Cell)
		}
	}
	if len(cells) > 0 {
		sort.Ints(cells)
		return fmt.Sprintf("Captured %d image(s) from cell execution %v", len(images), cells)
	}
	return fmt.Sprintf("Captured %d image(s) from cell execution", len(images))
}
