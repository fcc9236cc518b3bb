package descriptor

import (
	"fmt"
	"sort"
)

type memoryRange struct {
	min, max, step int
}

// fargateSizes maps Fargate CPU units to the allowed memory values in MiB.
var fargateSizes = map[int][]memoryRange{
	256:   {{512, 512, 1}, {1024, 2048, 1024}},
	512:   {{1024, 4096, 1024}},
	1024:  {{2048, 8192, 1024}},
	2048:  {{4096, 16384, 1024}},
	4096:  {{8192, 30720, 1024}},
	8192:  {{16384, 61440, 4096}},
	16384: {{32768, 122880, 8192}},
}

// ValidFargateSize reports whether cpu units and memoryMiB form a Fargate task size.
func ValidFargateSize(cpu, memoryMiB int) bool {
	for _, r := range fargateSizes[cpu] {
		if memoryMiB >= r.min && memoryMiB <= r.max && (memoryMiB-r.min)%r.step == 0 {
			return true
		}
	}
	return false
}

// FargateMemoryOptions lists the memory values in MiB allowed for cpu units.
func FargateMemoryOptions(cpu int) []int {
	var out []int
	for _, r := range fargateSizes[cpu] {
		for m := r.min; m <= r.max; m += r.step {
			out = append(out, m)
		}
	}
	return out
}

// CheckFargateSize returns an error describing why cpu/memoryMiB is not a Fargate size.
func CheckFargateSize(cpu, memoryMiB int) error {
	if ValidFargateSize(cpu, memoryMiB) {
		return nil
	}
	if _, ok := fargateSizes[cpu]; !ok {
		cpus := make([]int, 0, len(fargateSizes))
		for c := range fargateSizes {
			cpus = append(cpus, c)
		}
		sort.Ints(cpus)
		return fmt.Errorf("invalid Fargate CPU %d, valid values are %v", cpu, cpus)
	}
	opts := FargateMemoryOptions(cpu)
	return fmt.Errorf("invalid Fargate memory %d MiB for CPU %d, valid range is %d-%d MiB", memoryMiB, cpu, opts[0], opts[len(opts)-1])
}
