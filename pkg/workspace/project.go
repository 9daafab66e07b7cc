package workspace

import (
	"encoding/xml"
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ProjectXML is the subset of an MSBuild project file the loader reads
type ProjectXML struct {
	XMLName        xml.Name           `xml:"Project"`
	Sdk            string             `xml:"Sdk,attr"`
	PropertyGroups []PropertyGroupXML `xml:"PropertyGroup"`
	ItemGroups     []ItemGroupXML     `xml:"ItemGroup"`
}

type PropertyGroupXML struct {
	AssemblyName string `xml:"AssemblyName"`
}

type ItemGroupXML struct {
	ProjectReferences  []ItemXML `xml:"ProjectReference"`
	InternalsVisibleTo []ItemXML `xml:"InternalsVisibleTo"`
	Compile            []ItemXML `xml:"Compile"`
}

type ItemXML struct {
	Include string `xml:"Include,attr"`
	Remove  string `xml:"Remove,attr"`
}

// Project is a parsed project file. Paths use forward slashes and are
// relative to the project directory.
type Project struct {
	AssemblyName string
	References   []string
	Friends      []string
	Removed      []string
}

// ParseProject parses the XML of a project file
func ParseProject(data []byte) (*Project, error) {
	var result ProjectXML
	if err := xml.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse project XML: %w", err)
	}

	p := &Project{}
	for _, pg := range result.PropertyGroups {
		if name := strings.TrimSpace(pg.AssemblyName); name != "" {
			p.AssemblyName = name
		}
	}

	for _, ig := range result.ItemGroups {
		for _, ref := range ig.ProjectReferences {
			if ref.Include != "" {
				p.References = append(p.References, cleanItemPath(ref.Include))
			}
		}
		for _, f := range ig.InternalsVisibleTo {
			if name := strings.TrimSpace(f.Include); name != "" {
				p.Friends = append(p.Friends, name)
			}
		}
		for _, c := range ig.Compile {
			for pattern := range strings.SplitSeq(c.Remove, ";") {
				if strings.TrimSpace(pattern) != "" {
					p.Removed = append(p.Removed, cleanItemPath(pattern))
				}
			}
		}
	}

	return p, nil
}

// cleanItemPath converts an MSBuild item path to a clean slash path
func cleanItemPath(p string) string {
	return path.Clean(strings.ReplaceAll(strings.TrimSpace(p), `\`, "/"))
}

// IsRemoved reports whether the document at rel (relative to the project
// directory) is excluded by a Compile Remove item. ** spans any number of
// directories, as in MSBuild.
func (p *Project) IsRemoved(rel string) bool {
	for _, pattern := range p.Removed {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}
