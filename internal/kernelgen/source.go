package kernelgen

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/samcharles93/seedscan/internal/xrsr"
)

var kernelTemplate = template.Must(template.New("kernel").Parse(`// Code generated by seedscan kernelgen. DO NOT EDIT.
// ranges: {{.Ranges}}
// residual bits: {{.ResidualCount}}

#define WORKGROUP_SIZE {{.WorkgroupSize}}u
#define TABLE_ENTRIES {{.TableEntries}}u
#define MAX_OUTPUTS {{.MaxOutputs}}u
#define FILTER_BITS {{.FilterBits}}

typedef unsigned int u32;
typedef unsigned long long u64;

__device__ __forceinline__ u64 rotl64(u64 x, int k) {
	return (x << k) | (x >> (64 - k));
}

__device__ __forceinline__ u64 mix_stafford13(u64 z) {
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9ULL;
	z = (z ^ (z >> 27)) * 0x94d049bb133111ebULL;
	return z ^ (z >> 31);
}

extern "C" __global__ void __launch_bounds__(WORKGROUP_SIZE) {{.Entry}}(
	const uint4* __restrict__ precomp,
	const u32* __restrict__ inputs,
	u32* __restrict__ outputs)
{
	__shared__ uint4 table[TABLE_ENTRIES];
	for (u32 i = threadIdx.x; i < TABLE_ENTRIES; i += WORKGROUP_SIZE) {
		table[i] = precomp[i];
	}
	__syncthreads();

	const u64 group = ((u64)blockIdx.z * gridDim.y + blockIdx.y) * gridDim.x + blockIdx.x;
	const u64 id = group * WORKGROUP_SIZE + threadIdx.x;
	if (id >= ((u64)inputs[0] << {{.InputBits}})) {
		return;
	}

	const u32* item = inputs + 1 + (id >> {{.InputBits}}) * 4;
	const u64 world_seed = (u64)item[0] | ((u64)(item[1] & 0xffffu) << 32) | ((id & 0xffffULL) << 48);

	const u64 seed_lo = world_seed ^ 0x6a09e667f3bcc909ULL;
	const u64 lo = mix_stafford13(seed_lo);
	const u64 hi = mix_stafford13(seed_lo + 0x9e3779b97f4a7c15ULL);
	const u32 s0 = (u32)lo;
	const u32 s1 = (u32)(lo >> 32);
	const u32 s2 = (u32)hi;
	const u32 s3 = (u32)(hi >> 32);

	uint4 x = make_uint4(0u, 0u, 0u, 0u);
{{range .Lines}}	{{.}}
{{end}}
	const u64 xl = (u64)x.x | ((u64)x.y << 32);
	const u64 xh = (u64)x.z | ((u64)x.w << 32);
	const u64 r = rotl64(xl + xh, 17) + xl;
	const u64 want = mix_stafford13((u64)item[2] | ((u64)item[3] << 32));
{{if .FilterBits}}	if (((r ^ want) >> (64 - FILTER_BITS)) != 0) {
		return;
	}
{{else}}	(void)r;
	(void)want;
{{end}}
	if (*(volatile u32*)outputs > MAX_OUTPUTS) {
		return;
	}
	const u32 slot = atomicAdd(outputs, 1u);
	if (slot >= MAX_OUTPUTS) {
		return;
	}
	u32* out = outputs + 1 + slot * 4;
	out[0] = (u32)world_seed;
	out[1] = (u32)(world_seed >> 32);
	out[2] = item[2];
	out[3] = item[3];
}
`))

type sourceData struct {
	Entry         string
	Ranges        string
	ResidualCount int
	WorkgroupSize int
	TableEntries  int
	MaxOutputs    int
	FilterBits    int
	InputBits     int
	Lines         []string
}

func render(m *Module) (string, error) {
	ranges := make([]string, len(m.Ranges))
	for i, r := range m.Ranges {
		ranges[i] = r.String()
	}
	data := sourceData{
		Entry:         m.Entry,
		Ranges:        strings.Join(ranges, " "),
		ResidualCount: len(m.Residual),
		WorkgroupSize: m.WorkgroupSize,
		TableEntries:  m.TableEntries(),
		MaxOutputs:    m.MaxOutputs,
		FilterBits:    m.FilterBits,
		InputBits:     InputBits,
		Lines:         make([]string, len(m.Steps)),
	}
	if data.Ranges == "" {
		data.Ranges = "none"
	}
	for i, s := range m.Steps {
		data.Lines[i] = stepLine(s)
	}
	var b strings.Builder
	if err := kernelTemplate.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

func stepLine(s Step) string {
	switch s.Kind {
	case StepLookup:
		r := s.Range
		return fmt.Sprintf(
			"{ const uint4 t = table[%du + ((s%d >> %d) & 0x%xu)]; x.x ^= t.x; x.y ^= t.y; x.z ^= t.z; x.w ^= t.w; }",
			s.Offset, r.Word, r.First, uint32(r.Size()-1))
	default:
		v := s.Value
		return fmt.Sprintf(
			"if ((s%d >> %d) & 1u) { x.x ^= 0x%08xu; x.y ^= 0x%08xu; x.z ^= 0x%08xu; x.w ^= 0x%08xu; }",
			s.Bit/xrsr.WordBits, s.Bit%xrsr.WordBits, v[0], v[1], v[2], v[3])
	}
}
