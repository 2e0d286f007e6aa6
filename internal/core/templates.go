package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/valter-silva-au/ptrack/pkg/models"
	"gopkg.in/yaml.v3"
)

// BlankTemplateID names the built-in template that seeds no tasks.
const BlankTemplateID = "blank"

// ErrTemplateNotFound is returned when a template ID is not in the catalog.
var ErrTemplateNotFound = errors.New("template not found")

var validTemplateID = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,31}$`)

// TemplateCatalog defines the interface for listing and managing the task
// title presets used to seed new projects.
type TemplateCatalog interface {
	List() []models.Template
	Get(id string) (models.Template, error)
	Register(tmpl models.Template) error
	Remove(id string) error
	Load() error
	Save() error
}

// templatesFile is the on-disk layout of templates.yaml.
type templatesFile struct {
	Version   string            `yaml:"version"`
	Templates []models.Template `yaml:"templates"`
}

// templateCatalog implements TemplateCatalog with built-in defaults plus
// user templates persisted in templates.yaml. User templates may override
// built-ins with the same ID.
type templateCatalog struct {
	basePath string
	custom   []models.Template
}

// NewTemplateCatalog creates a TemplateCatalog whose user templates live in
// templates.yaml inside basePath.
func NewTemplateCatalog(basePath string) TemplateCatalog {
	return &templateCatalog{basePath: basePath}
}

func (c *templateCatalog) filePath() string {
	return filepath.Join(c.basePath, "templates.yaml")
}

// List returns the built-in templates followed by user templates, with
// overridden built-ins replaced in place.
func (c *templateCatalog) List() []models.Template {
	out := make([]models.Template, 0, len(builtinTemplates)+len(c.custom))
	overridden := make(map[string]bool, len(c.custom))
	for _, t := range c.custom {
		overridden[t.ID] = true
	}
	for _, t := range builtinTemplates {
		if overridden[t.ID] {
			custom, _ := c.findCustom(t.ID)
			out = append(out, cloneTemplate(custom))
			continue
		}
		out = append(out, cloneTemplate(t))
	}
	for _, t := range c.custom {
		if !isBuiltin(t.ID) {
			out = append(out, cloneTemplate(t))
		}
	}
	return out
}

// Get returns the template with the given ID. An empty ID resolves to the
// blank template.
func (c *templateCatalog) Get(id string) (models.Template, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		id = BlankTemplateID
	}
	if t, ok := c.findCustom(id); ok {
		return cloneTemplate(t), nil
	}
	for _, t := range builtinTemplates {
		if t.ID == id {
			return cloneTemplate(t), nil
		}
	}
	return models.Template{}, fmt.Errorf("template %q: %w", id, ErrTemplateNotFound)
}

// Register adds or replaces a user template. Empty task titles are dropped.
func (c *templateCatalog) Register(tmpl models.Template) error {
	tmpl.ID = strings.TrimSpace(tmpl.ID)
	if !validTemplateID.MatchString(tmpl.ID) {
		return fmt.Errorf("registering template: id %q is invalid, must match %s", tmpl.ID, validTemplateID)
	}
	tmpl.Name = strings.TrimSpace(tmpl.Name)
	if tmpl.Name == "" {
		tmpl.Name = tmpl.ID
	}
	titles := make([]string, 0, len(tmpl.Tasks))
	for _, title := range tmpl.Tasks {
		if title = strings.TrimSpace(title); title != "" {
			titles = append(titles, title)
		}
	}
	tmpl.Tasks = titles

	for i := range c.custom {
		if c.custom[i].ID == tmpl.ID {
			c.custom[i] = tmpl
			return nil
		}
	}
	c.custom = append(c.custom, tmpl)
	return nil
}

// Remove deletes a user template. Built-in templates cannot be removed.
func (c *templateCatalog) Remove(id string) error {
	for i := range c.custom {
		if c.custom[i].ID == id {
			c.custom = append(c.custom[:i], c.custom[i+1:]...)
			return nil
		}
	}
	if isBuiltin(id) {
		return fmt.Errorf("removing template %q: built-in templates cannot be removed", id)
	}
	return fmt.Errorf("removing template %q: %w", id, ErrTemplateNotFound)
}

// Load reads templates.yaml. A missing file leaves only the built-ins.
func (c *templateCatalog) Load() error {
	data, err := os.ReadFile(c.filePath())
	if err != nil {
		if os.IsNotExist(err) {
			c.custom = nil
			return nil
		}
		return fmt.Errorf("loading templates: %w", err)
	}

	var tf templatesFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return fmt.Errorf("loading templates: parsing YAML: %w", err)
	}
	c.custom = nil
	for _, t := range tf.Templates {
		if err := c.Register(t); err != nil {
			return fmt.Errorf("loading templates: %w", err)
		}
	}
	return nil
}

// Save writes the user templates to templates.yaml.
func (c *templateCatalog) Save() error {
	if err := os.MkdirAll(c.basePath, 0o750); err != nil {
		return fmt.Errorf("saving templates: creating directory: %w", err)
	}
	data, err := yaml.Marshal(&templatesFile{Version: "1.0", Templates: c.custom})
	if err != nil {
		return fmt.Errorf("saving templates: marshaling YAML: %w", err)
	}
	if err := os.WriteFile(c.filePath(), data, 0o600); err != nil {
		return fmt.Errorf("saving templates: writing file: %w", err)
	}
	return nil
}

func (c *templateCatalog) findCustom(id string) (models.Template, bool) {
	for _, t := range c.custom {
		if t.ID == id {
			return t, true
		}
	}
	return models.Template{}, false
}

func isBuiltin(id string) bool {
	for _, t := range builtinTemplates {
		if t.ID == id {
			return true
		}
	}
	return false
}

func cloneTemplate(t models.Template) models.Template {
	t.Tasks = append([]string(nil), t.Tasks...)
	return t
}

// builtinTemplates are always available, in display order.
var builtinTemplates = []models.Template{
	{ID: BlankTemplateID, Name: "Blank (no predefined tasks)"},
	{
		ID:   "vessel",
		Name: "New Vessel",
		Tasks: []string{
			"IT Ready Checklist Sent",
			"IT Ready Checklist Received",
			"Admin Updated - IP, GA, Images",
			"Gateway PC Online",
			"Vessel Ready For Commission",
			"Documentation Updated & Uploaded",
		},
	},
	{
		ID:   "data-collection",
		Name: "Alternative install",
		Tasks: []string{
			"Equipment Configured",
			"IT Ready Checklist Sent?",
			"IT Ready Checklist Received",
			"Equipment Sent",
			"Gateway Online",
			"Equipment Installed",
			"Receiving Data?",
			"Documentation Updated & Uploaded",
		},
	},
}
