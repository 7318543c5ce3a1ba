package vulkan

import "sync"

// LockGroup names a family of externally synchronized vulkan objects.
type LockGroup string

const (
	ResourceManagement      LockGroup = "resource_management"
	CommandBufferManagement LockGroup = "command_buffer_management"
	DescriptorManagement    LockGroup = "descriptor_management"
)

// VulkanLockPool hands out one mutex per LockGroup and one per queue
// family. Uploads from the asset watcher and the render loop go through it.
type VulkanLockPool struct {
	mu     sync.Mutex
	groups map[LockGroup]*sync.Mutex
	queues map[uint32]*sync.Mutex
}

func NewVulkanLockPool() *VulkanLockPool {
	return &VulkanLockPool{
		groups: make(map[LockGroup]*sync.Mutex),
		queues: make(map[uint32]*sync.Mutex),
	}
}

func lockFor[K comparable](mu *sync.Mutex, locks map[K]*sync.Mutex, key K) *sync.Mutex {
	mu.Lock()
	defer mu.Unlock()
	l, ok := locks[key]
	if !ok {
		l = &sync.Mutex{}
		locks[key] = l
	}
	return l
}

// SafeCall runs fn while holding the lock of group.
func (vs *VulkanLockPool) SafeCall(group LockGroup, fn func() error) error {
	l := lockFor(&vs.mu, vs.groups, group)
	l.Lock()
	defer l.Unlock()
	return fn()
}

// SetQueueFamily creates the lock of a queue family up front.
func (vs *VulkanLockPool) SetQueueFamily(index uint32) {
	lockFor(&vs.mu, vs.queues, index)
}

// SafeQueueCall runs fn while holding the lock of the queue family.
func (vs *VulkanLockPool) SafeQueueCall(queueFamilyIndex uint32, fn func() error) error {
	l := lockFor(&vs.mu, vs.queues, queueFamilyIndex)
	l.Lock()
	defer l.Unlock()
	return fn()
}
