package timeline

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"
)

//go:embed scenes/*.yaml
var scenes embed.FS

// BuiltinNames lists the embedded scenes, sorted
func BuiltinNames() []string {
	entries, err := scenes.ReadDir("scenes")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".yaml") {
			names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
		}
	}
	sort.Strings(names)
	return names
}

// Builtin returns a fresh copy of an embedded scene
func Builtin(name string) (*SceneTimeline, error) {
	data, err := scenes.ReadFile(path.Join("scenes", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownScene, name, strings.Join(BuiltinNames(), ", "))
	}
	return ParseTimeline(data)
}
