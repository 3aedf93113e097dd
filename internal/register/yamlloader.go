package register

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/demcon/embeddeddebugger/internal/protocol"
)

// yamlFile is the on-disk shape of a <cpu_name>/<application_version>.yaml
// register catalog file.
type yamlFile struct {
	Registers []yamlEntry `yaml:"Registers"`
}

type yamlEntry struct {
	ID         uint32 `yaml:"id"`
	Name       string `yaml:"name"`
	ReadWrite  string `yaml:"ReadWrite"`
	Type       string `yaml:"Type"`
	Source     string `yaml:"Source"`
	DerefDepth uint8  `yaml:"DerefDepth"`
	Offset     uint32 `yaml:"Offset"`
}

// FileLoader resolves catalogs from <Root>/<cpu_name>/<application_version>.yaml.
type FileLoader struct {
	Root string
}

func NewFileLoader(root string) *FileLoader {
	return &FileLoader{Root: root}
}

func (l *FileLoader) Load(cpuName, applicationVersion string) ([]*Register, error) {
	path := filepath.Join(l.Root, cpuName, applicationVersion+".yaml")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("register: load catalog %s: %w", path, err)
	}

	var doc yamlFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("register: parse catalog %s: %w", path, err)
	}

	regs := make([]*Register, 0, len(doc.Registers))
	for _, e := range doc.Registers {
		regs = append(regs, &Register{
			ID:           e.ID,
			Name:         e.Name,
			Direction:    protocol.DirectionFromString(e.ReadWrite),
			VariableType: protocol.VariableTypeFromString(e.Type),
			Source:       protocol.SourceFromString(e.Source),
			DerefDepth:   e.DerefDepth,
			Offset:       e.Offset,
			ChannelMode:  protocol.ChannelOff,
		})
	}
	return regs, nil
}
