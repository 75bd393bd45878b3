package blit

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

//go:embed blit.wgsl
var blitShaderSource string

// ShaderKind selects how the blit shader reaches the device.
type ShaderKind uint8

const (
	// ShaderWGSL hands the WGSL source to the backend.
	ShaderWGSL ShaderKind = iota

	// ShaderSPIRV compiles the WGSL to SPIR-V with naga first, for
	// backends that only consume SPIR-V.
	ShaderSPIRV
)

// String returns the shader kind name.
func (k ShaderKind) String() string {
	switch k {
	case ShaderWGSL:
		return "wgsl"
	case ShaderSPIRV:
		return "spirv"
	default:
		return fmt.Sprintf("ShaderKind(%d)", int(k))
	}
}

// Source returns the WGSL source of the blit shader.
func Source() string {
	return blitShaderSource
}

// compileSPIRV compiles WGSL to SPIR-V words (little-endian).
func compileSPIRV(wgsl string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrShaderCompile, err)
	}
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("%w: spir-v length %d is not a multiple of 4", ErrShaderCompile, len(spirvBytes))
	}
	code := make([]uint32, len(spirvBytes)/4)
	for i := range code {
		code[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return code, nil
}

func createShaderModule(device hal.Device, kind ShaderKind) (hal.ShaderModule, error) {
	if blitShaderSource == "" {
		return nil, fmt.Errorf("%w: blit shader source is empty", ErrShaderCompile)
	}
	desc := &hal.ShaderModuleDescriptor{Label: "embedview_blit_shader"}
	switch kind {
	case ShaderSPIRV:
		code, err := compileSPIRV(blitShaderSource)
		if err != nil {
			return nil, err
		}
		desc.Source = hal.ShaderSource{SPIRV: code}
	default:
		desc.Source = hal.ShaderSource{WGSL: blitShaderSource}
	}
	module, err := device.CreateShaderModule(desc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrShaderCompile, err)
	}
	return module, nil
}
