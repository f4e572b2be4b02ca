package scene

import "github.com/jinzhu/copier"

// deepCopy copies src into dst without sharing any slice backing arrays.
func deepCopy(dst, src any) {
	// Only plain structs, slices and arrays live in the tree, so copier
	// cannot fail on it.
	if err := copier.CopyWithOption(dst, src, copier.Option{DeepCopy: true}); err != nil {
		panic("scene: deep copy: " + err.Error())
	}
}

// Clone returns a copy of the group whose entity tree shares nothing with g.
func (g GroupInfo) Clone() GroupInfo {
	var out GroupInfo
	deepCopy(&out, &g)
	return out
}

// Clone returns a deep copy of the entity level and everything below it.
func (e EntitiesInfo) Clone() EntitiesInfo {
	var out EntitiesInfo
	deepCopy(&out, &e)
	return out
}

// Clone returns a deep copy of the whole model.
func (m *ModelInfo) Clone() *ModelInfo {
	out := &ModelInfo{}
	deepCopy(out, m)
	return out
}
