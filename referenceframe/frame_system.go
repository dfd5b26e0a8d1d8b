// Package referenceframe provides transforms of poses between named reference frames.
package referenceframe

import (
	"sort"
	"sync"

	"github.com/pkg/errors"

	"go.viam.com/cartopt/spatialmath"
)

// World is the string "world", but made into an exported constant.
const World = "world"

// Transformer expresses a pose given in the src frame in the dst frame. It can fail,
// for example when a frame is unknown.
type Transformer interface {
	TransformPose(pose spatialmath.Pose, src, dst string) (spatialmath.Pose, error)
}

// StaticFrameSystem is a flat registry of named frames, each posed in world. It is the
// simplest Transformer: all frames are fixed for the lifetime of the system.
type StaticFrameSystem struct {
	mu     sync.RWMutex
	name   string
	frames map[string]spatialmath.Pose
}

// NewStaticFrameSystem creates a frame system containing only the world frame.
func NewStaticFrameSystem(name string) *StaticFrameSystem {
	return &StaticFrameSystem{
		name:   name,
		frames: map[string]spatialmath.Pose{World: spatialmath.NewZeroPose()},
	}
}

// Name returns the name of this frame system.
func (fs *StaticFrameSystem) Name() string {
	return fs.name
}

// AddFrame registers a frame posed in world. Adding a frame twice is an error.
func (fs *StaticFrameSystem) AddFrame(name string, poseInWorld spatialmath.Pose) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, ok := fs.frames[name]; ok {
		return errors.Errorf("frame with name %q already in frame system %q", name, fs.name)
	}
	fs.frames[name] = poseInWorld
	return nil
}

// FrameNames returns the sorted names of all registered frames.
func (fs *StaticFrameSystem) FrameNames() []string {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	names := make([]string, 0, len(fs.frames))
	for name := range fs.frames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TransformPose expresses a pose given in the src frame in the dst frame.
func (fs *StaticFrameSystem) TransformPose(pose spatialmath.Pose, src, dst string) (spatialmath.Pose, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	srcPose, ok := fs.frames[src]
	if !ok {
		return spatialmath.Pose{}, errors.Errorf("source frame %q not in frame system %q", src, fs.name)
	}
	dstPose, ok := fs.frames[dst]
	if !ok {
		return spatialmath.Pose{}, errors.Errorf("destination frame %q not in frame system %q", dst, fs.name)
	}
	inWorld := spatialmath.Compose(srcPose, pose)
	return spatialmath.Compose(dstPose.Invert(), inWorld), nil
}
