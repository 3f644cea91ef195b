package engine

import (
	"slices"
	"time"

	"github.com/inamate/whiteboard/internal/document"
)

// frameIndex is the child -> frame lookup derived from every frame's
// ChildIDs. It is valid only while version matches the store's version;
// Adopt and Release keep it current, anything else forces a rebuild.
type frameIndex struct {
	built    bool
	version  uint64
	parent   map[string]string
	rebuilds int
}

// framesCache holds the frame ids in draw order for a short time so that
// containment checks during a drag do not rescan the whole document.
type framesCache struct {
	valid   bool
	ids     []string
	expires time.Time
}

func (c *framesCache) invalidate() {
	c.valid = false
	c.ids = nil
}

func (s *Store) parentIndex() map[string]string {
	if !s.index.built || s.index.version != s.version {
		s.rebuildIndex()
	}
	return s.index.parent
}

func (s *Store) rebuildIndex() {
	parent := map[string]string{}
	for _, id := range s.order {
		f, ok := s.layers[id].(*document.Frame)
		if !ok {
			continue
		}
		for _, c := range f.ChildIDs {
			if _, dup := parent[c]; !dup {
				parent[c] = id
			}
		}
	}
	s.index = frameIndex{
		built:    true,
		version:  s.version,
		parent:   parent,
		rebuilds: s.index.rebuilds + 1,
	}
}

// ParentOf returns the frame that currently owns id.
func (s *Store) ParentOf(id string) (string, bool) {
	p, ok := s.parentIndex()[id]
	return p, ok
}

// ChildrenOf returns a copy of a frame's child list.
func (s *Store) ChildrenOf(frameID string) []string {
	f, ok := s.layers[frameID].(*document.Frame)
	if !ok {
		return nil
	}
	return slices.Clone(f.ChildIDs)
}

// Adopt makes id a child of frameID, releasing it from any previous frame.
// Frames are never adopted.
func (s *Store) Adopt(frameID, id string) bool {
	frame, ok := s.layers[frameID].(*document.Frame)
	if !ok || frameID == id {
		return false
	}
	l, ok := s.layers[id]
	if !ok || l.Kind() == document.KindFrame {
		return false
	}

	parents := s.parentIndex()
	prev, had := parents[id]
	if had && prev == frameID {
		return false
	}
	if had {
		s.layers[prev].(*document.Frame).RemoveChild(id)
	}
	frame.ChildIDs = append(frame.ChildIDs, id)
	parents[id] = frameID
	return true
}

// Release detaches id from its frame, if any.
func (s *Store) Release(id string) bool {
	parents := s.parentIndex()
	prev, ok := parents[id]
	if !ok {
		return false
	}
	s.layers[prev].(*document.Frame).RemoveChild(id)
	delete(parents, id)
	return true
}

// Frames returns the frame ids in draw order, back to front.
func (s *Store) Frames() []string {
	now := s.opts.Now()
	if s.frames.valid && now.Before(s.frames.expires) {
		return slices.Clone(s.frames.ids)
	}

	var ids []string
	for _, id := range s.order {
		if s.layers[id].Kind() == document.KindFrame {
			ids = append(ids, id)
		}
	}
	s.frames = framesCache{valid: true, ids: ids, expires: now.Add(s.opts.FrameCacheTTL)}
	return slices.Clone(ids)
}

// AssignFrame applies the containment policy to one layer: it joins the
// frame covering most of it when that share exceeds one half, and is
// released otherwise.
func (s *Store) AssignFrame(id string) bool {
	l, ok := s.layers[id]
	if !ok || l.Kind() == document.KindFrame {
		return false
	}
	if best, ok := BestContainingFrame(s.layers, l.Bounds(), s.Frames()); ok {
		return s.Adopt(best, id)
	}
	return s.Release(id)
}

// adoptContained pulls into frameID every layer for which it is now the
// best containing frame.
func (s *Store) adoptContained(frameID string) bool {
	frames := s.Frames()
	changed := false
	for _, id := range s.order {
		l := s.layers[id]
		if l.Kind() == document.KindFrame {
			continue
		}
		if best, ok := BestContainingFrame(s.layers, l.Bounds(), frames); ok && best == frameID {
			changed = s.Adopt(frameID, id) || changed
		}
	}
	return changed
}
