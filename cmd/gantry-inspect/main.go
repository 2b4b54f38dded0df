// gantry-inspect is a CLI utility for loading glTF assets through the gantry pipeline and
// reporting what they contain. By default it runs against a measuring device that validates
// and sizes every upload without needing a GPU.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/gantry3d/gantry/config"
	"github.com/gantry3d/gantry/gpu"
	"github.com/gantry3d/gantry/loader"
	"github.com/gantry3d/gantry/logging"
	"github.com/gantry3d/gantry/model"
	"github.com/gantry3d/gantry/transcode"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "validate":
		cmdValidate(args)
	case "meta":
		cmdMeta(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`gantry-inspect - glTF asset pipeline inspector

Usage:
  gantry-inspect <command> [options] <file.gltf|file.glb>

Commands:
  info <file>        Load the document and report scene and upload statistics
  validate <files>   Load documents and report pass/fail for each
  meta <file>        Print the document's feature metadata tables

Options:
  -config <path>     Config file (default: ./gantry.yaml, then the user config dir)
  -budget <bytes>    Per-tick GPU upload budget override
  -gpu               Upload into a real WebGPU device instead of measuring
  -json              Emit the report as JSON (info only)
  -v                 Verbose: per-node detail and debug logging

Examples:
  gantry-inspect info scene.glb
  gantry-inspect info -json -budget 1048576 scene.glb
  gantry-inspect validate assets/*.glb
  gantry-inspect meta city.gltf`)
}

// toolFlags is the flag surface shared by every command.
type toolFlags struct {
	fs     *flag.FlagSet
	config *string
	budget *uint64
	useGPU *bool
	asJSON *bool
	v      *bool
}

func newToolFlags(name string) *toolFlags {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	return &toolFlags{
		fs:     fs,
		config: fs.String("config", "", "Config file path"),
		budget: fs.Uint64("budget", 0, "Per-tick GPU upload budget in bytes (0 = config value)"),
		useGPU: fs.Bool("gpu", false, "Upload into a real WebGPU device"),
		asJSON: fs.Bool("json", false, "Emit JSON"),
		v:      fs.Bool("v", false, "Verbose output"),
	}
}

// session bundles the collaborators one tool invocation uses.
type session struct {
	cfg    *config.Config
	logger *zap.Logger
	device gpu.Device
}

func newSession(tf *toolFlags) (*session, error) {
	cfg, err := config.Load(*tf.config)
	if err != nil {
		return nil, err
	}
	if *tf.budget > 0 {
		cfg.Loader.UploadBudgetBytes = *tf.budget
	}
	if *tf.v {
		cfg.Logging.Level = "debug"
		cfg.Report.Verbose = true
	}

	logger := logging.New(logging.Options{
		Level:   cfg.Logging.Level,
		Console: *tf.v,
		File:    logging.DefaultFileOptions(cfg.Logging.LogFile),
	})

	var device gpu.Device
	if *tf.useGPU {
		device, err = gpu.NewDevice(gpu.WithDeviceLabel("gantry-inspect"))
		if err != nil {
			return nil, fmt.Errorf("requesting WebGPU device: %w", err)
		}
	} else {
		device = gpu.NewDiscardDevice()
	}

	return &session{cfg: cfg, logger: logger, device: device}, nil
}

func (s *session) close() {
	s.device.Release()
	_ = s.logger.Sync()
}

// load drives one document through the pipeline to a terminal state.
func (s *session) load(path string) (loader.ModelLoader, error) {
	m := loader.NewModelLoader(s.device, loader.NewFileSource(path),
		loader.WithModelLogger(s.logger),
		loader.WithUploadBudget(s.cfg.Loader.UploadBudgetBytes),
		loader.WithImagePool(transcode.NewPool(
			transcode.WithMaxDecoders(s.cfg.Loader.DecodeWorkers),
			transcode.WithTranscodeLogger(s.logger),
		)),
	)

	m.Start()
	deadline := time.Now().Add(s.cfg.Loader.Timeout)
	for !m.State().Terminal() {
		if time.Now().After(deadline) {
			m.Unload()
			return nil, fmt.Errorf("load did not settle within %s", s.cfg.Loader.Timeout)
		}
		m.Process()
		time.Sleep(s.cfg.Loader.TickInterval)
	}
	if m.State() == loader.StateFailed {
		return nil, m.Err()
	}
	return m, nil
}

// --- info ---

type report struct {
	Document        string  `json:"document"`
	LoadMillis      int64   `json:"load_ms"`
	Nodes           int     `json:"nodes"`
	Roots           int     `json:"roots"`
	Primitives      int     `json:"primitives"`
	Skins           int     `json:"skins"`
	Instanced       int     `json:"instanced_nodes"`
	FeatureTables   int     `json:"feature_tables"`
	FeatureTextures int     `json:"feature_textures"`
	Loaders         int     `json:"loaders"`
	GeometryBytes   uint64  `json:"geometry_bytes"`
	TextureBytes    uint64  `json:"texture_bytes"`
	GeometryMB      float64 `json:"-"`
	TextureMB       float64 `json:"-"`
}

func buildReport(path string, m loader.ModelLoader, components *model.Components, took time.Duration) report {
	r := report{
		Document:   path,
		LoadMillis: took.Milliseconds(),
		Nodes:      len(components.Nodes),
		Roots:      len(components.Scene.Nodes),
		Skins:      len(components.Skins),
	}
	for _, node := range components.Nodes {
		r.Primitives += len(node.Primitives)
		if node.Instances != nil {
			r.Instanced++
		}
	}
	if components.FeatureMetadata != nil {
		r.FeatureTables = len(components.FeatureMetadata.PropertyTables)
		r.FeatureTextures = len(components.FeatureMetadata.FeatureTextures)
	}

	stats := m.Statistics()
	r.Loaders = stats.Loaders
	r.GeometryBytes = stats.GeometryBytes
	r.TextureBytes = stats.TextureBytes
	r.GeometryMB = float64(stats.GeometryBytes) / (1024 * 1024)
	r.TextureMB = float64(stats.TextureBytes) / (1024 * 1024)
	return r
}

func cmdInfo(args []string) {
	tf := newToolFlags("info")
	tf.fs.Parse(args)
	if tf.fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: gantry-inspect info [options] <file>")
		os.Exit(1)
	}
	path := tf.fs.Arg(0)

	s, err := newSession(tf)
	if err != nil {
		fatal(err)
	}
	defer s.close()

	start := time.Now()
	m, err := s.load(path)
	if err != nil {
		fatal(err)
	}
	defer m.Unload()

	components, err := m.Model()
	if err != nil {
		fatal(err)
	}
	r := buildReport(path, m, components, time.Since(start))

	if *tf.asJSON || s.cfg.Report.Format == "json" {
		out, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			fatal(err)
		}
		fmt.Println(string(out))
		return
	}

	fmt.Printf("Document:   %s\n", r.Document)
	fmt.Printf("Loaded in:  %d ms\n", r.LoadMillis)
	fmt.Printf("Nodes:      %d (%d roots, %d instanced)\n", r.Nodes, r.Roots, r.Instanced)
	fmt.Printf("Primitives: %d\n", r.Primitives)
	fmt.Printf("Skins:      %d\n", r.Skins)
	if r.FeatureTables > 0 {
		fmt.Printf("Feature tables: %d\n", r.FeatureTables)
	}
	if r.FeatureTextures > 0 {
		fmt.Printf("Feature textures: %d\n", r.FeatureTextures)
	}
	fmt.Printf("Loaders:    %d\n", r.Loaders)
	fmt.Printf("Geometry:   %.2f MB\n", r.GeometryMB)
	fmt.Printf("Textures:   %.2f MB\n", r.TextureMB)

	if s.cfg.Report.Verbose {
		world := components.WorldMatrices()
		fmt.Println()
		for i, node := range components.Nodes {
			fmt.Printf("  node %-3d %-24q primitives=%d", i, node.Name, len(node.Primitives))
			if node.Skin >= 0 {
				fmt.Printf(" skin=%d", node.Skin)
			}
			if node.Instances != nil {
				fmt.Printf(" instances=%d", node.Instances.Count)
			}
			fmt.Printf(" at (%.2f, %.2f, %.2f)\n", world[i][12], world[i][13], world[i][14])
		}
	}
}

// --- validate ---

func cmdValidate(args []string) {
	tf := newToolFlags("validate")
	tf.fs.Parse(args)
	if tf.fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: gantry-inspect validate [options] <files>")
		os.Exit(1)
	}

	s, err := newSession(tf)
	if err != nil {
		fatal(err)
	}
	defer s.close()

	failed := 0
	for _, path := range tf.fs.Args() {
		m, err := s.load(path)
		if err != nil {
			failed++
			fmt.Printf("FAIL %s: %v\n", path, err)
			continue
		}
		stats := m.Statistics()
		fmt.Printf("OK   %s (%d loaders, %.2f MB)\n", path,
			stats.Loaders, float64(stats.GeometryBytes+stats.TextureBytes)/(1024*1024))
		m.Unload()
	}

	if failed > 0 {
		fmt.Printf("\n%d of %d documents failed\n", failed, tf.fs.NArg())
		os.Exit(1)
	}
}

// --- meta ---

func cmdMeta(args []string) {
	tf := newToolFlags("meta")
	tf.fs.Parse(args)
	if tf.fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: gantry-inspect meta [options] <file>")
		os.Exit(1)
	}
	path := tf.fs.Arg(0)

	s, err := newSession(tf)
	if err != nil {
		fatal(err)
	}
	defer s.close()

	m, err := s.load(path)
	if err != nil {
		fatal(err)
	}
	defer m.Unload()

	components, err := m.Model()
	if err != nil {
		fatal(err)
	}
	if components.FeatureMetadata == nil {
		fmt.Println("No feature metadata.")
		return
	}

	tables := components.FeatureMetadata.PropertyTables
	fmt.Printf("Feature tables: %d\n", len(tables))
	for i, table := range tables {
		fmt.Printf("  [%d] %s (class %q, %d features)\n", i, table.Name, table.Class, table.Count)
		names := make([]string, 0, len(table.Properties))
		for name := range table.Properties {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			column := table.Properties[name]
			fmt.Printf("      %-16s %-10s %d bytes\n", name, column.Type, len(column.Data))
		}
	}

	if textures := components.FeatureMetadata.FeatureTextures; len(textures) > 0 {
		fmt.Printf("Feature textures: %d\n", len(textures))
		for i, tex := range textures {
			fmt.Printf("  [%d] %s (class %q)\n", i, tex.Name, tex.Class)
			for _, prop := range tex.Properties {
				fmt.Printf("      %-16s channels %q texcoord %d\n", prop.Name, prop.Channels, prop.Texture.TexCoord)
			}
		}
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
