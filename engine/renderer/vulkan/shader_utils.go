package vulkan

import (
	"encoding/binary"
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkexamples/engine/core"
)

const spirvMagic = 0x07230203

/**
 * @brief Represents a single shader stage.
 */
type VulkanShaderStage struct {
	/** @brief The internal shader module Handle. */
	Handle vk.ShaderModule
	/** @brief The pipeline shader stage creation info. */
	ShaderStageCreateInfo vk.PipelineShaderStageCreateInfo
}

// SPIRVWords reinterprets little endian SPIR-V byte code as 32 bit words.
func SPIRVWords(code []byte) ([]uint32, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, &core.UnsupportedFormatError{What: "SPIR-V length", Value: len(code)}
	}
	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(code[i*4:])
	}
	if words[0] != spirvMagic {
		return nil, &core.UnsupportedFormatError{What: "SPIR-V magic", Value: fmt.Sprintf("%#x", words[0])}
	}
	return words, nil
}

// NewShaderStage creates a shader module from SPIR-V byte code.
func (d *Device) NewShaderStage(code []byte, stage vk.ShaderStageFlagBits) (*VulkanShaderStage, error) {
	words, err := SPIRVWords(code)
	if err != nil {
		return nil, err
	}

	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code)),
		PCode:    words,
	}
	out := &VulkanShaderStage{}
	if res := vk.CreateShaderModule(d.LogicalDevice, &createInfo, d.Allocator, &out.Handle); res != vk.Success {
		return nil, resultError("shader module", res)
	}

	out.ShaderStageCreateInfo = vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  stage,
		Module: out.Handle,
		PName:  VulkanSafeString("main"),
	}
	return out, nil
}

func (s *VulkanShaderStage) Destroy(device *Device) {
	if s.Handle != nil {
		vk.DestroyShaderModule(device.LogicalDevice, s.Handle, device.Allocator)
		s.Handle = nil
	}
}

// VulkanSafeString terminates s with a NUL byte for the C side.
func VulkanSafeString(s string) string {
	if len(s) == 0 || s[len(s)-1] != 0 {
		return s + "\x00"
	}
	return s
}
