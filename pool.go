package headcount

import (
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"gocv.io/x/gocv"
)

// NetPool is a simple pool holding multiple instances of the same Model so
// concurrent sessions can run inference in parallel. A gocv.Net must only be
// used by one goroutine at a time.
type NetPool struct {
	// pool of networks
	nets chan *gocv.Net
	// size of pool
	size  int
	close sync.Once
}

// NewNetPool creates a new pool of size networks loaded from modelFile. The
// device selects the OpenCV DNN backend, see Device.
func NewNetPool(size int, modelFile string, device string) (*NetPool, error) {

	if size < 1 {
		return nil, errors.Newf("pool size must be at least 1, got %d", size)
	}

	backend, target, err := Device(device)

	if err != nil {
		return nil, err
	}

	p := &NetPool{
		nets: make(chan *gocv.Net, size),
		size: size,
	}

	for i := 0; i < size; i++ {
		net := gocv.ReadNet(modelFile, "")

		if net.Empty() {
			_ = net.Close()
			// close any instances that may have been created before receiving
			// the error
			p.Close()
			return nil, errors.Newf("failed to load model %s", modelFile)
		}

		net.SetPreferableBackend(backend)
		net.SetPreferableTarget(target)

		// attach to pool
		p.Return(&net)
	}

	return p, nil
}

// Get a network from the pool, blocking until one is free
func (p *NetPool) Get() *gocv.Net {
	return <-p.nets
}

// Return a network to the pool
func (p *NetPool) Return(net *gocv.Net) {
	select {
	case p.nets <- net:
	default:
		// pool is full or closed
	}
}

// Size returns the number of networks in the pool
func (p *NetPool) Size() int {
	return p.size
}

// Close the pool and all networks in it. Every network taken with Get must
// have been returned first.
func (p *NetPool) Close() {
	p.close.Do(func() {
		// close channel
		close(p.nets)

		// close all networks
		for next := range p.nets {
			_ = next.Close()
		}
	})
}

// Device maps a device name to the OpenCV DNN backend and target to run
// inference on. Supported names are cpu (the default), cuda, cuda-fp16,
// openvino and vulkan.
func Device(name string) (gocv.NetBackendType, gocv.NetTargetType, error) {

	switch strings.ToLower(name) {
	case "", "cpu":
		return gocv.NetBackendDefault, gocv.NetTargetCPU, nil
	case "cuda":
		return gocv.NetBackendCUDA, gocv.NetTargetCUDA, nil
	case "cuda-fp16":
		return gocv.NetBackendCUDA, gocv.NetTargetCUDAFP16, nil
	case "openvino":
		return gocv.NetBackendOpenVINO, gocv.NetTargetCPU, nil
	case "vulkan":
		return gocv.NetBackendVKCOM, gocv.NetTargetVulkan, nil
	}

	return 0, 0, errors.Newf("unknown inference device %q", name)
}
