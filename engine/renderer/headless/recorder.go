package headless

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkexamples/engine/renderer/metadata"
)

// Recorder is a CommandRecorder that keeps every call in order.
type Recorder struct {
	Commands []Command
}

func (r *Recorder) CopyBuffer(src, dst *metadata.Buffer, size uint64) {
	r.Commands = append(r.Commands, Command{Kind: CmdCopyBuffer, Src: src, Dst: dst, Size: size})
}

func (r *Recorder) BindVertexBuffer(buffer *metadata.Buffer, offset uint64) {
	r.Commands = append(r.Commands, Command{Kind: CmdBindVertexBuffer, Dst: buffer, Offset: offset})
}

func (r *Recorder) BindIndexBuffer(buffer *metadata.Buffer, offset uint64, indexType vk.IndexType) {
	r.Commands = append(r.Commands, Command{Kind: CmdBindIndexBuffer, Dst: buffer, Offset: offset, IndexType: indexType})
}

func (r *Recorder) PushConstants(layout *metadata.PipelineLayout, stages vk.ShaderStageFlags, offset uint32, data []byte) {
	r.Commands = append(r.Commands, Command{
		Kind:       CmdPushConstants,
		Layout:     layout,
		Stages:     stages,
		PushOffset: offset,
		Data:       append([]byte(nil), data...),
	})
}

func (r *Recorder) BindDescriptorSet(layout *metadata.PipelineLayout, set *metadata.DescriptorSet) {
	r.Commands = append(r.Commands, Command{Kind: CmdBindDescriptorSet, Layout: layout, Set: set})
}

func (r *Recorder) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	r.Commands = append(r.Commands, Command{
		Kind:          CmdDrawIndexed,
		IndexCount:    indexCount,
		InstanceCount: instanceCount,
		FirstIndex:    firstIndex,
		VertexOffset:  vertexOffset,
		FirstInstance: firstInstance,
	})
}

// Draws returns only the draw calls.
func (r *Recorder) Draws() []Command {
	return r.Filter(CmdDrawIndexed)
}

func (r *Recorder) Filter(kind CommandKind) []Command {
	var out []Command
	for _, c := range r.Commands {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func (r *Recorder) Reset() {
	r.Commands = r.Commands[:0]
}
