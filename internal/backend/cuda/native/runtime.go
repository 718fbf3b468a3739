//go:build cuda

package native

/*
#cgo LDFLAGS: -lcuda -lnvrtc

#include <stddef.h>
#include <stdlib.h>

// Driver API and NVRTC forward declarations so the build needs the
// libraries but not the toolkit headers.
typedef int CUresult;
typedef int CUdevice;
typedef struct CUctx_st* CUcontext;
typedef struct CUmod_st* CUmodule;
typedef struct CUfunc_st* CUfunction;
typedef struct CUstream_st* CUstream;
typedef unsigned long long CUdeviceptr;

extern CUresult cuInit(unsigned int flags);
extern CUresult cuGetErrorString(CUresult err, const char** str);
extern CUresult cuDeviceGetCount(int* count);
extern CUresult cuDeviceGet(CUdevice* dev, int ordinal);
extern CUresult cuDeviceGetName(char* name, int len, CUdevice dev);
extern CUresult cuDeviceGetAttribute(int* value, int attrib, CUdevice dev);
extern CUresult cuCtxCreate_v2(CUcontext* ctx, unsigned int flags, CUdevice dev);
extern CUresult cuCtxDestroy_v2(CUcontext ctx);
extern CUresult cuCtxSetCurrent(CUcontext ctx);
extern CUresult cuStreamCreate(CUstream* stream, unsigned int flags);
extern CUresult cuStreamDestroy_v2(CUstream stream);
extern CUresult cuStreamSynchronize(CUstream stream);
extern CUresult cuMemAlloc_v2(CUdeviceptr* ptr, size_t bytes);
extern CUresult cuMemFree_v2(CUdeviceptr ptr);
extern CUresult cuMemAllocHost_v2(void** ptr, size_t bytes);
extern CUresult cuMemFreeHost(void* ptr);
extern CUresult cuMemcpyHtoD_v2(CUdeviceptr dst, const void* src, size_t bytes);
extern CUresult cuMemcpyDtoHAsync_v2(void* dst, CUdeviceptr src, size_t bytes, CUstream stream);
extern CUresult cuMemcpyDtoDAsync_v2(CUdeviceptr dst, CUdeviceptr src, size_t bytes, CUstream stream);
extern CUresult cuMemsetD32Async(CUdeviceptr dst, unsigned int value, size_t n, CUstream stream);
extern CUresult cuModuleLoadData(CUmodule* module, const void* image);
extern CUresult cuModuleUnload(CUmodule module);
extern CUresult cuModuleGetFunction(CUfunction* fn, CUmodule module, const char* name);
extern CUresult cuLaunchKernel(CUfunction fn,
	unsigned int gx, unsigned int gy, unsigned int gz,
	unsigned int bx, unsigned int by, unsigned int bz,
	unsigned int shared, CUstream stream, void** params, void** extra);

typedef int nvrtcResult;
typedef struct _nvrtcProgram* nvrtcProgram;

extern const char* nvrtcGetErrorString(nvrtcResult result);
extern nvrtcResult nvrtcCreateProgram(nvrtcProgram* prog, const char* src, const char* name,
	int numHeaders, const char* const* headers, const char* const* includeNames);
extern nvrtcResult nvrtcCompileProgram(nvrtcProgram prog, int numOptions, const char* const* options);
extern nvrtcResult nvrtcGetProgramLogSize(nvrtcProgram prog, size_t* size);
extern nvrtcResult nvrtcGetProgramLog(nvrtcProgram prog, char* log);
extern nvrtcResult nvrtcGetPTXSize(nvrtcProgram prog, size_t* size);
extern nvrtcResult nvrtcGetPTX(nvrtcProgram prog, char* ptx);
extern nvrtcResult nvrtcDestroyProgram(nvrtcProgram* prog);

#define SEEDSCAN_MAX_KERNEL_ARGS 8

static const char* seedscanCuErrorString(int err) {
	const char* msg = 0;
	if (cuGetErrorString((CUresult)err, &msg) != 0 || msg == 0) {
		return "unknown error";
	}
	return msg;
}

static int seedscanLaunch(CUfunction fn,
	unsigned int gx, unsigned int gy, unsigned int gz,
	unsigned int bx, unsigned int shared, CUstream stream,
	CUdeviceptr* args, int nargs) {
	void* params[SEEDSCAN_MAX_KERNEL_ARGS];
	if (nargs > SEEDSCAN_MAX_KERNEL_ARGS) {
		return 1;
	}
	for (int i = 0; i < nargs; i++) {
		params[i] = &args[i];
	}
	return (int)cuLaunchKernel(fn, gx, gy, gz, bx, 1, 1, shared, stream, params, 0);
}

static int seedscanCompile(const char* src, const char* name, const char* arch, nvrtcProgram* out) {
	nvrtcResult res = nvrtcCreateProgram(out, src, name, 0, 0, 0);
	if (res != 0) {
		return (int)res;
	}
	const char* opts[2] = { arch, "--use_fast_math" };
	return (int)nvrtcCompileProgram(*out, 2, opts);
}
*/
import "C"

import (
	"fmt"
	"strings"
	"unsafe"
)

// MaxKernelArgs bounds the pointer arguments Launch accepts.
const MaxKernelArgs = C.SEEDSCAN_MAX_KERNEL_ARGS

type Attribute int

// Driver API attribute ids.
const (
	AttrMaxThreadsPerBlock      Attribute = 1
	AttrMaxGridDimX             Attribute = 5
	AttrMaxGridDimY             Attribute = 6
	AttrMaxGridDimZ             Attribute = 7
	AttrMaxSharedMemoryPerBlock Attribute = 8
	AttrMultiprocessorCount     Attribute = 16
	AttrComputeCapabilityMajor  Attribute = 75
	AttrComputeCapabilityMinor  Attribute = 76
)

type Context struct {
	ptr C.CUcontext
	dev C.CUdevice
}

type Stream struct {
	ptr C.CUstream
}

type DeviceBuffer struct {
	ptr   C.CUdeviceptr
	bytes int64
}

type HostBuffer struct {
	ptr   unsafe.Pointer
	bytes int64
}

type Module struct {
	ptr C.CUmodule
}

type Function struct {
	ptr C.CUfunction
}

func Init() error {
	return cuErr(C.cuInit(0))
}

func DeviceCount() (int, error) {
	if err := Init(); err != nil {
		return 0, err
	}
	var count C.int
	if err := cuErr(C.cuDeviceGetCount(&count)); err != nil {
		return 0, err
	}
	return int(count), nil
}

// NewContext creates a context on device ordinal and makes it current on the
// calling thread.
func NewContext(ordinal int) (*Context, error) {
	if err := Init(); err != nil {
		return nil, err
	}
	var dev C.CUdevice
	if err := cuErr(C.cuDeviceGet(&dev, C.int(ordinal))); err != nil {
		return nil, err
	}
	var ctx C.CUcontext
	if err := cuErr(C.cuCtxCreate_v2(&ctx, 0, dev)); err != nil {
		return nil, err
	}
	return &Context{ptr: ctx, dev: dev}, nil
}

// MakeCurrent binds the context to the calling OS thread. Callers lock the
// goroutine to its thread around any sequence of driver calls.
func (c *Context) MakeCurrent() error {
	return cuErr(C.cuCtxSetCurrent(c.ptr))
}

func (c *Context) Destroy() error {
	if c == nil || c.ptr == nil {
		return nil
	}
	err := cuErr(C.cuCtxDestroy_v2(c.ptr))
	c.ptr = nil
	return err
}

func (c *Context) Name() (string, error) {
	var buf [256]C.char
	if err := cuErr(C.cuDeviceGetName(&buf[0], C.int(len(buf)), c.dev)); err != nil {
		return "", err
	}
	return C.GoString(&buf[0]), nil
}

func (c *Context) Attribute(attr Attribute) (int, error) {
	var v C.int
	if err := cuErr(C.cuDeviceGetAttribute(&v, C.int(attr), c.dev)); err != nil {
		return 0, err
	}
	return int(v), nil
}

func NewStream() (Stream, error) {
	var s C.CUstream
	if err := cuErr(C.cuStreamCreate(&s, 0)); err != nil {
		return Stream{}, err
	}
	return Stream{ptr: s}, nil
}

func (s Stream) Destroy() error {
	if s.ptr == nil {
		return nil
	}
	return cuErr(C.cuStreamDestroy_v2(s.ptr))
}

func (s Stream) Synchronize() error {
	return cuErr(C.cuStreamSynchronize(s.ptr))
}

func AllocDevice(bytes int64) (DeviceBuffer, error) {
	if bytes <= 0 {
		return DeviceBuffer{}, fmt.Errorf("device alloc size must be > 0")
	}
	var ptr C.CUdeviceptr
	if err := cuErr(C.cuMemAlloc_v2(&ptr, C.size_t(bytes))); err != nil {
		return DeviceBuffer{}, err
	}
	return DeviceBuffer{ptr: ptr, bytes: bytes}, nil
}

func (b DeviceBuffer) Free() error {
	if b.ptr == 0 {
		return nil
	}
	return cuErr(C.cuMemFree_v2(b.ptr))
}

func (b DeviceBuffer) Bytes() int64 { return b.bytes }

// AllocHostPinned returns page-locked host memory the device can copy into
// asynchronously.
func AllocHostPinned(bytes int64) (HostBuffer, error) {
	if bytes <= 0 {
		return HostBuffer{}, fmt.Errorf("host alloc size must be > 0")
	}
	var ptr unsafe.Pointer
	if err := cuErr(C.cuMemAllocHost_v2(&ptr, C.size_t(bytes))); err != nil {
		return HostBuffer{}, err
	}
	return HostBuffer{ptr: ptr, bytes: bytes}, nil
}

func (b HostBuffer) Free() error {
	if b.ptr == nil {
		return nil
	}
	return cuErr(C.cuMemFreeHost(b.ptr))
}

func (b HostBuffer) Ptr() unsafe.Pointer { return b.ptr }

// Words views the pinned allocation as u32 words.
func (b HostBuffer) Words() []uint32 {
	return unsafe.Slice((*uint32)(b.ptr), b.bytes/4)
}

// CopyToDevice is a synchronous upload of words into dst at word offset.
func CopyToDevice(dst DeviceBuffer, offset int, words []uint32) error {
	if len(words) == 0 {
		return nil
	}
	bytes := int64(len(words)) * 4
	if int64(offset)*4+bytes > dst.bytes {
		return fmt.Errorf("upload of %d bytes at word %d exceeds %d", bytes, offset, dst.bytes)
	}
	return cuErr(C.cuMemcpyHtoD_v2(dst.ptr+C.CUdeviceptr(offset*4), unsafe.Pointer(&words[0]), C.size_t(bytes)))
}

func CopyToHostAsync(dst HostBuffer, src DeviceBuffer, bytes int64, stream Stream) error {
	return cuErr(C.cuMemcpyDtoHAsync_v2(dst.ptr, src.ptr, C.size_t(bytes), stream.ptr))
}

func CopyDeviceAsync(dst, src DeviceBuffer, bytes int64, stream Stream) error {
	return cuErr(C.cuMemcpyDtoDAsync_v2(dst.ptr, src.ptr, C.size_t(bytes), stream.ptr))
}

func MemsetD32Async(dst DeviceBuffer, value uint32, n int64, stream Stream) error {
	return cuErr(C.cuMemsetD32Async(dst.ptr, C.uint(value), C.size_t(n), stream.ptr))
}

// CompilePTX compiles CUDA C source for compute capability major.minor. The
// NVRTC log is returned with the error on failure.
func CompilePTX(src, name string, major, minor int) (string, error) {
	csrc := C.CString(src)
	defer C.free(unsafe.Pointer(csrc))
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	carch := C.CString(fmt.Sprintf("--gpu-architecture=compute_%d%d", major, minor))
	defer C.free(unsafe.Pointer(carch))

	var prog C.nvrtcProgram
	res := C.seedscanCompile(csrc, cname, carch, &prog)
	if prog != nil {
		defer C.nvrtcDestroyProgram(&prog)
	}
	if res != 0 {
		msg := C.GoString(C.nvrtcGetErrorString(C.nvrtcResult(res)))
		if log := programLog(prog); log != "" {
			return "", fmt.Errorf("nvrtc error %d: %s\n%s", int(res), msg, log)
		}
		return "", fmt.Errorf("nvrtc error %d: %s", int(res), msg)
	}

	var size C.size_t
	if err := nvrtcErr(C.nvrtcGetPTXSize(prog, &size)); err != nil {
		return "", err
	}
	buf := C.malloc(size)
	defer C.free(buf)
	if err := nvrtcErr(C.nvrtcGetPTX(prog, (*C.char)(buf))); err != nil {
		return "", err
	}
	return C.GoString((*C.char)(buf)), nil
}

func programLog(prog C.nvrtcProgram) string {
	if prog == nil {
		return ""
	}
	var size C.size_t
	if C.nvrtcGetProgramLogSize(prog, &size) != 0 || size <= 1 {
		return ""
	}
	buf := C.malloc(size)
	defer C.free(buf)
	if C.nvrtcGetProgramLog(prog, (*C.char)(buf)) != 0 {
		return ""
	}
	return strings.TrimSpace(C.GoString((*C.char)(buf)))
}

func LoadModule(ptx string) (Module, error) {
	cptx := C.CString(ptx)
	defer C.free(unsafe.Pointer(cptx))
	var mod C.CUmodule
	if err := cuErr(C.cuModuleLoadData(&mod, unsafe.Pointer(cptx))); err != nil {
		return Module{}, err
	}
	return Module{ptr: mod}, nil
}

func (m Module) Unload() error {
	if m.ptr == nil {
		return nil
	}
	return cuErr(C.cuModuleUnload(m.ptr))
}

func (m Module) Function(name string) (Function, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	var fn C.CUfunction
	if err := cuErr(C.cuModuleGetFunction(&fn, m.ptr, cname)); err != nil {
		return Function{}, err
	}
	return Function{ptr: fn}, nil
}

// Launch enqueues fn over grid with block threads per workgroup, passing the
// buffers' device pointers as the kernel's arguments in order.
func Launch(fn Function, grid [3]uint32, block uint32, shared uint32, stream Stream, args ...DeviceBuffer) error {
	if len(args) > MaxKernelArgs {
		return fmt.Errorf("kernel takes at most %d arguments, got %d", MaxKernelArgs, len(args))
	}
	var ptrs [MaxKernelArgs]C.CUdeviceptr
	for i, a := range args {
		ptrs[i] = a.ptr
	}
	return cuErr(C.CUresult(C.seedscanLaunch(fn.ptr,
		C.uint(grid[0]), C.uint(grid[1]), C.uint(grid[2]),
		C.uint(block), C.uint(shared), stream.ptr,
		&ptrs[0], C.int(len(args)))))
}

func cuErr(code C.CUresult) error {
	if code == 0 {
		return nil
	}
	msg := C.GoString(C.seedscanCuErrorString(C.int(code)))
	return fmt.Errorf("cuda driver error %d: %s", int(code), msg)
}

func nvrtcErr(code C.nvrtcResult) error {
	if code == 0 {
		return nil
	}
	return fmt.Errorf("nvrtc error %d: %s", int(code), C.GoString(C.nvrtcGetErrorString(code)))
}
