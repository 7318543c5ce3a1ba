package metadata

/** @brief A layout descriptor sets are allocated against. */
type DescriptorSetLayout struct {
	Name         string
	InternalData interface{}
}

/** @brief A bound group of resource references consumed by shader stages. */
type DescriptorSet struct {
	ID           uint64
	InternalData interface{}
}

/** @brief The layout push constants and descriptor sets are bound through. */
type PipelineLayout struct {
	Name         string
	InternalData interface{}
}
