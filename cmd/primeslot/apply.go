package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/primeslot/primeslot/pkg/catalog"
	"github.com/primeslot/primeslot/pkg/client"
	"github.com/primeslot/primeslot/pkg/roster"
	"github.com/primeslot/primeslot/pkg/types"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Create events and members from a YAML file",
	Long: `Create the events and members described in a YAML file on a running
server. A file may hold several documents separated by ---.

Example file:
  kind: Event
  metadata:
    name: spring-mixer
  spec:
    title: Spring Mixer
    date: 2026-04-14T18:00:00Z
    location: Main hall
  ---
  kind: Member
  spec:
    fullName: Ada Lovelace
    email: ada@example.com

Examples:
  primeslot apply -f seed.yaml --email admin@example.com`,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringP("file", "f", "", "YAML file to apply (required)")
	_ = applyCmd.MarkFlagRequired("file")
	addRemoteFlags(applyCmd)
}

// Resource is one document of an apply file
type Resource struct {
	APIVersion string           `yaml:"apiVersion"`
	Kind       string           `yaml:"kind"`
	Metadata   ResourceMetadata `yaml:"metadata"`
	Spec       yaml.Node        `yaml:"spec"`
}

type ResourceMetadata struct {
	Name string `yaml:"name"`
}

type eventSpec struct {
	Title       string `yaml:"title"`
	Date        string `yaml:"date"`
	Location    string `yaml:"location"`
	Description string `yaml:"description"`
	Status      string `yaml:"status"`
}

type memberSpec struct {
	FullName         string `yaml:"fullName"`
	Email            string `yaml:"email"`
	Phone            string `yaml:"phone"`
	ChapterName      string `yaml:"chapterName"`
	MemberStatus     string `yaml:"memberStatus"`
	BusinessCategory string `yaml:"businessCategory"`
}

func runApply(cmd *cobra.Command, args []string) error {
	filename, _ := cmd.Flags().GetString("file")

	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %v", err)
	}
	defer f.Close()

	resources, err := decodeResources(f)
	if err != nil {
		return err
	}
	if len(resources) == 0 {
		return fmt.Errorf("no resources in %s", filename)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), remoteTimeout)
	defer cancel()
	c, err := connect(ctx, cmd)
	if err != nil {
		return err
	}

	for i := range resources {
		if err := applyResource(ctx, c, &resources[i]); err != nil {
			return fmt.Errorf("document %d: %w", i+1, err)
		}
	}
	return nil
}

func decodeResources(r io.Reader) ([]Resource, error) {
	dec := yaml.NewDecoder(r)
	var out []Resource
	for {
		var res Resource
		err := dec.Decode(&res)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %v", err)
		}
		if res.Kind == "" {
			continue
		}
		out = append(out, res)
	}
}

func (r *Resource) decodeSpec(dst any) error {
	if r.Spec.Kind != yaml.MappingNode {
		return fmt.Errorf("%s spec must be a mapping", r.Kind)
	}
	if err := r.Spec.Decode(dst); err != nil {
		return fmt.Errorf("invalid %s spec: %v", r.Kind, err)
	}
	return nil
}

func applyResource(ctx context.Context, c *client.Client, res *Resource) error {
	switch res.Kind {
	case "Event":
		return applyEvent(ctx, c, res)
	case "Member":
		return applyMember(ctx, c, res)
	default:
		return fmt.Errorf("unsupported resource kind: %s", res.Kind)
	}
}

func applyEvent(ctx context.Context, c *client.Client, res *Resource) error {
	var spec eventSpec
	if err := res.decodeSpec(&spec); err != nil {
		return err
	}
	in, err := spec.input(res.Metadata.Name)
	if err != nil {
		return err
	}

	fmt.Printf("Creating event: %s\n", in.Title)
	id, err := c.CreateEvent(ctx, in)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	fmt.Printf("✓ Event created: %s (ID: %s)\n", in.Title, id)
	return nil
}

func (s eventSpec) input(name string) (catalog.EventInput, error) {
	in := catalog.EventInput{
		Title:       s.Title,
		Location:    s.Location,
		Description: s.Description,
		Status:      types.EventStatus(s.Status),
	}
	if in.Title == "" {
		in.Title = name
	}
	if s.Date != "" {
		ms, err := types.ParseMillis(s.Date)
		if err != nil {
			return catalog.EventInput{}, fmt.Errorf("invalid event date %q: %w", s.Date, err)
		}
		d := types.FlexMillis(ms)
		in.Date = &d
	}
	return in, nil
}

func applyMember(ctx context.Context, c *client.Client, res *Resource) error {
	var spec memberSpec
	if err := res.decodeSpec(&spec); err != nil {
		return err
	}
	in := roster.MemberInput{
		FullName:         spec.FullName,
		Email:            spec.Email,
		Phone:            spec.Phone,
		ChapterName:      spec.ChapterName,
		MemberStatus:     spec.MemberStatus,
		BusinessCategory: spec.BusinessCategory,
	}
	if in.FullName == "" {
		in.FullName = res.Metadata.Name
	}

	fmt.Printf("Creating member: %s\n", in.FullName)
	id, err := c.CreateMember(ctx, in)
	if err != nil {
		return fmt.Errorf("failed to create member: %w", err)
	}
	fmt.Printf("✓ Member created: %s (ID: %s)\n", in.FullName, id)
	return nil
}
