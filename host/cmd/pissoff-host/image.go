package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"pissoff/media/image"
)

var imageCmd = &cobra.Command{
	Use:   "image",
	Short: "Build and inspect SD card images",
}

var imageBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a card image from a YAML manifest",
	Args:  cobra.NoArgs,
	RunE:  runImageBuild,
}

var imageLsCmd = &cobra.Command{
	Use:   "ls <image>",
	Short: "List the files in a card image",
	Args:  cobra.ExactArgs(1),
	RunE:  runImageLs,
}

var (
	manifestPath string
	imageOut     string
)

func init() {
	imageBuildCmd.Flags().StringVarP(&manifestPath, "manifest", "m", "sounds.yaml", "Manifest listing the sounds")
	imageBuildCmd.Flags().StringVarP(&imageOut, "output", "o", "card.img", "Image file to write")
	imageCmd.AddCommand(imageBuildCmd, imageLsCmd)
}

func runImageBuild(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return err
	}
	m, err := image.LoadManifest(data)
	if err != nil {
		return err
	}

	// Manifest paths are relative to the manifest
	dir := filepath.Dir(manifestPath)
	readFile := func(path string) ([]byte, error) {
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		return os.ReadFile(path)
	}
	img, mismatched, err := m.Build(readFile)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(mismatched))
	for name := range mismatched {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s is %d Hz, the device plays at %d Hz\n", name, mismatched[name], image.SampleRate)
	}

	if err := os.WriteFile(imageOut, img, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s: %d files, %d bytes\n", imageOut, len(m.Files), len(img))
	return nil
}

func runImageLs(cmd *cobra.Command, args []string) error {
	img, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	records, err := image.Parse(img)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-5s %-8s %-8s %s\n", "START", "SIZE", "SECONDS", "NAME")
	for _, r := range records {
		fmt.Fprintf(out, "%-5d %-8d %-8.2f %s\n", r.StartBlock, r.FileSize, float64(r.FileSize)/image.SampleRate, r.Name)
	}
	return nil
}
