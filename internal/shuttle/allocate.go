package shuttle

import (
	"fmt"
	"path"
	"strings"
)

// maxNameSuffix bounds the numbered-variant probe. Destination folders with
// a thousand copies of the same name are treated as full.
const maxNameSuffix = 999

// AllocateUniqueName returns a file name that does not collide with any
// entry in folder. If name itself is free it is returned unchanged;
// otherwise numbered variants of the form "base (n)ext" are probed in order
// and the smallest free one wins. Returns ErrNameSpaceExhausted when every
// variant up to maxNameSuffix is taken.
func AllocateUniqueName(folder FolderHandle, name string) (string, error) {
	taken, err := nameTaken(folder, name)
	if err != nil {
		return "", err
	}
	if !taken {
		return name, nil
	}

	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)

	for n := 1; n <= maxNameSuffix; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, n, ext)
		taken, err := nameTaken(folder, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("no free variant of %q in %q: %w", name, folder.Path(), ErrNameSpaceExhausted)
}

func nameTaken(folder FolderHandle, name string) (bool, error) {
	item, err := folder.ResolveChild(name)
	if err != nil {
		return false, fmt.Errorf("probing %q in %q: %w", name, folder.Path(), err)
	}
	return item != nil, nil
}
