//go:build cuda

package native

import (
	"runtime"
	"testing"
)

func newTestContext(t *testing.T) *Context {
	t.Helper()
	count, err := DeviceCount()
	if err != nil {
		t.Skipf("cuda driver unavailable: %v", err)
	}
	if count < 1 {
		t.Skip("no cuda device available")
	}
	runtime.LockOSThread()
	t.Cleanup(runtime.UnlockOSThread)

	ctx, err := NewContext(0)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	t.Cleanup(func() {
		if err := ctx.Destroy(); err != nil {
			t.Errorf("context destroy: %v", err)
		}
	})
	return ctx
}

func TestPinnedCopyRoundTrip(t *testing.T) {
	newTestContext(t)

	stream, err := NewStream()
	if err != nil {
		t.Fatalf("NewStream: %v", err)
	}
	defer func() {
		if err := stream.Destroy(); err != nil {
			t.Fatalf("stream destroy: %v", err)
		}
	}()

	const n = 256
	host, err := AllocHostPinned(n * 4)
	if err != nil {
		t.Fatalf("AllocHostPinned: %v", err)
	}
	defer func() {
		if err := host.Free(); err != nil {
			t.Fatalf("host free: %v", err)
		}
	}()
	dev, err := AllocDevice(n * 4)
	if err != nil {
		t.Fatalf("AllocDevice: %v", err)
	}
	defer func() {
		if err := dev.Free(); err != nil {
			t.Fatalf("device free: %v", err)
		}
	}()

	in := make([]uint32, n)
	for i := range in {
		in[i] = uint32(i) * 2654435761
	}
	if err := CopyToDevice(dev, 0, in); err != nil {
		t.Fatalf("CopyToDevice: %v", err)
	}
	if err := MemsetD32Async(dev, 0, 1, stream); err != nil {
		t.Fatalf("MemsetD32Async: %v", err)
	}
	if err := CopyToHostAsync(host, dev, n*4, stream); err != nil {
		t.Fatalf("CopyToHostAsync: %v", err)
	}
	if err := stream.Synchronize(); err != nil {
		t.Fatalf("stream synchronize: %v", err)
	}

	out := host.Words()
	if out[0] != 0 {
		t.Fatalf("word 0 not cleared: %#x", out[0])
	}
	for i := 1; i < n; i++ {
		if out[i] != in[i] {
			t.Fatalf("mismatch at %d: got %#x want %#x", i, out[i], in[i])
		}
	}
}

const iotaKernel = `extern "C" __global__ void iota(unsigned int* out) {
	unsigned int id = blockIdx.x * blockDim.x + threadIdx.x;
	out[id] = id + 1u;
}
`

func TestCompileAndLaunch(t *testing.T) {
	ctx := newTestContext(t)

	major, err := ctx.Attribute(AttrComputeCapabilityMajor)
	if err != nil {
		t.Fatalf("capability major: %v", err)
	}
	minor, err := ctx.Attribute(AttrComputeCapabilityMinor)
	if err != nil {
		t.Fatalf("capability minor: %v", err)
	}
	ptx, err := CompilePTX(iotaKernel, "iota.cu", major, minor)
	if err != nil {
		t.Fatalf("CompilePTX: %v", err)
	}
	mod, err := LoadModule(ptx)
	if err != nil {
		t.Fatalf("LoadModule: %v", err)
	}
	defer mod.Unload()
	fn, err := mod.Function("iota")
	if err != nil {
		t.Fatalf("Function: %v", err)
	}

	stream, err := NewStream()
	if err != nil {
		t.Fatalf("NewStream: %v", err)
	}
	defer stream.Destroy()

	const blocks, threads = 4, 64
	dev, err := AllocDevice(blocks * threads * 4)
	if err != nil {
		t.Fatalf("AllocDevice: %v", err)
	}
	defer dev.Free()
	host, err := AllocHostPinned(blocks * threads * 4)
	if err != nil {
		t.Fatalf("AllocHostPinned: %v", err)
	}
	defer host.Free()

	if err := Launch(fn, [3]uint32{blocks, 1, 1}, threads, 0, stream, dev); err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if err := CopyToHostAsync(host, dev, blocks*threads*4, stream); err != nil {
		t.Fatalf("CopyToHostAsync: %v", err)
	}
	if err := stream.Synchronize(); err != nil {
		t.Fatalf("stream synchronize: %v", err)
	}
	for i, v := range host.Words() {
		if v != uint32(i)+1 {
			t.Fatalf("out[%d] = %d, want %d", i, v, i+1)
		}
	}
}

func TestCompileReportsLog(t *testing.T) {
	newTestContext(t)

	_, err := CompilePTX("this is not cuda", "bad.cu", 5, 2)
	if err == nil {
		t.Fatal("expected compile error")
	}
}
