package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/banshee-data/splatpack/internal/config"
	"github.com/banshee-data/splatpack/internal/convert"
	"github.com/banshee-data/splatpack/internal/fsutil"
	"github.com/banshee-data/splatpack/internal/monitoring"
	"github.com/banshee-data/splatpack/internal/version"
)

var (
	inPath      = flag.String("in", "", "Input PLY file")
	outPath     = flag.String("out", "", "Output SPZ file (default: input path with .spz extension)")
	configPath  = flag.String("config", "", "Optional JSON conversion config")
	antialiased = flag.Bool("antialiased", false, "Mark the output as trained with antialiasing")
	strictSH    = flag.Bool("strict-sh", false, "Reject SH column counts that do not match a full degree")
	quiet       = flag.Bool("quiet", false, "Suppress progress logging")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// outputPath derives the SPZ path for in when -out is not given.
func outputPath(in, out string) string {
	if out != "" {
		return out
	}
	return strings.TrimSuffix(in, filepath.Ext(in)) + ".spz"
}

// loadConfig reads the JSON config if given and applies flag overrides.
func loadConfig(path string, antialiased, strictSH bool) (*config.ConversionConfig, error) {
	cfg := config.DefaultConversionConfig()
	if path != "" {
		loaded, err := config.LoadConversionConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if antialiased {
		cfg.Antialiased = &antialiased
	}
	if strictSH {
		cfg.StrictSH = &strictSH
	}
	return cfg, nil
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println("ply2spz", version.String())
		return
	}
	if *inPath == "" && flag.NArg() > 0 {
		*inPath = flag.Arg(0)
	}
	if *inPath == "" {
		log.Fatal("Input path is required (-in)")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()
	if *quiet {
		monitoring.SetLogger(nil)
	} else {
		monitoring.SetLogger(logger.Sugar().Infof)
	}

	cfg, err := loadConfig(*configPath, *antialiased, *strictSH)
	if err != nil {
		logger.Fatal("failed to load config", zap.String("path", *configPath), zap.Error(err))
	}

	cv, err := convert.New(cfg)
	if err != nil {
		logger.Fatal("failed to create converter", zap.Error(err))
	}

	out := outputPath(*inPath, *outPath)
	res, err := cv.ConvertFile(fsutil.OSFileSystem{}, *inPath, out)
	if err != nil {
		logger.Error("conversion failed", zap.String("in", *inPath), zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("conversion complete",
		zap.String("run_id", res.RunID),
		zap.String("out", out),
		zap.Int("points", res.NumPoints),
		zap.Int("sh_degree", res.SHDegree),
		zap.Int("raw_bytes", res.RawSize),
		zap.Int("compressed_bytes", res.CompressedSize),
	)
}
