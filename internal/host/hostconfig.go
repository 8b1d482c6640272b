// Package host probes the local machine's topology to build the demo
// master's seed agent Resources: CPU count, L3 cache capacity and total
// memory. It is the allocator's one concrete Resources producer outside of
// the config file, used by the "probe-host" CLI subcommand and by "serve"
// when no config agents are supplied.
package host

import (
	"bufio"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/intel/goresctrl/pkg/rdt"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"hierarchical-allocator/internal/logging"
	"hierarchical-allocator/internal/resources"
)

// HostConfig is the local machine's discovered topology.
type HostConfig struct {
	CPUVendor    string
	CPUModel     string
	TotalCores   int
	NumSockets   int

	L3Cache L3CacheConfig
	MemMB   int64

	Hostname      string
	OSInfo        string
	KernelVersion string

	RDTSupported bool
}

// L3CacheConfig is the discovered L3 cache capacity.
type L3CacheConfig struct {
	TotalSizeBytes int64
	TotalSizeMB    float64
}

var (
	globalHostConfig *HostConfig
	hostConfigOnce   sync.Once
)

// GetHostConfig returns the process-wide host configuration, probing it on
// first call.
func GetHostConfig() (*HostConfig, error) {
	var err error
	hostConfigOnce.Do(func() {
		globalHostConfig, err = initializeHostConfig()
	})
	return globalHostConfig, err
}

func initializeHostConfig() (*HostConfig, error) {
	logger := logging.GetLogger()
	logger.Info("probing host configuration")

	config := &HostConfig{}

	if err := config.initSystemInfo(); err != nil {
		return nil, fmt.Errorf("init system info: %w", err)
	}
	if err := config.initCPUInfo(); err != nil {
		return nil, fmt.Errorf("init cpu info: %w", err)
	}
	if err := config.initMemInfo(); err != nil {
		logger.WithError(err).Warn("failed to read memory info, defaulting to 0")
	}
	if err := config.initL3CacheInfo(); err != nil {
		logger.WithError(err).Warn("failed to read L3 cache size, using defaults")
		config.setDefaultL3CacheInfo()
	}
	config.RDTSupported = rdt.MonSupported()

	logger.WithFields(logrus.Fields{
		"cpu_model":   config.CPUModel,
		"total_cores": config.TotalCores,
		"l3_cache_mb": config.L3Cache.TotalSizeMB,
		"mem_mb":      config.MemMB,
	}).Info("host configuration probed")

	return config, nil
}

func (hc *HostConfig) initSystemInfo() error {
	hostname, err := os.Hostname()
	if err != nil {
		return fmt.Errorf("get hostname: %w", err)
	}
	hc.Hostname = hostname
	hc.OSInfo = runtime.GOOS + "/" + runtime.GOARCH

	if data, err := os.ReadFile("/proc/version"); err == nil {
		fields := strings.Fields(string(data))
		if len(fields) >= 3 {
			hc.KernelVersion = fields[2]
		}
	}
	if hc.KernelVersion == "" {
		hc.KernelVersion = "unknown"
	}
	return nil
}

func (hc *HostConfig) initCPUInfo() error {
	hc.TotalCores = runtime.NumCPU()

	file, err := os.Open("/proc/cpuinfo")
	if err != nil {
		hc.CPUVendor = "unknown"
		hc.CPUModel = "unknown"
		hc.NumSockets = 1
		return nil
	}
	defer file.Close()

	seenPhysicalIDs := make(map[string]bool)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "vendor_id") && hc.CPUVendor == "":
			hc.CPUVendor = afterColon(line)
		case strings.HasPrefix(line, "model name") && hc.CPUModel == "":
			hc.CPUModel = afterColon(line)
		case strings.HasPrefix(line, "physical id"):
			seenPhysicalIDs[afterColon(line)] = true
		}
	}

	if hc.CPUVendor == "" {
		hc.CPUVendor = "unknown"
	}
	if hc.CPUModel == "" {
		hc.CPUModel = "unknown"
	}
	hc.NumSockets = len(seenPhysicalIDs)
	if hc.NumSockets == 0 {
		hc.NumSockets = 1
	}
	return nil
}

func afterColon(line string) string {
	parts := strings.SplitN(line, ":", 2)
	if len(parts) != 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func (hc *HostConfig) initMemInfo() error {
	data, err := os.ReadFile("/proc/meminfo")
	if err != nil {
		return err
	}
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, "MemTotal:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return fmt.Errorf("unexpected MemTotal line: %q", line)
		}
		kb, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return fmt.Errorf("parse MemTotal: %w", err)
		}
		hc.MemMB = kb / 1024
		return nil
	}
	return fmt.Errorf("MemTotal not found in /proc/meminfo")
}

func (hc *HostConfig) initL3CacheInfo() error {
	cacheSize, err := getL3CacheSizeFromSysfs()
	if err != nil {
		return err
	}
	hc.L3Cache.TotalSizeBytes = cacheSize
	hc.L3Cache.TotalSizeMB = float64(cacheSize) / (1024.0 * 1024.0)
	return nil
}

func getL3CacheSizeFromSysfs() (int64, error) {
	cachePaths := []string{
		"/sys/devices/system/cpu/cpu0/cache/index3/size",
		"/sys/devices/system/cpu/cpu0/cache/index2/size",
	}
	for _, path := range cachePaths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		sizeStr := strings.TrimSpace(string(data))
		switch {
		case strings.HasSuffix(sizeStr, "K"):
			if kb, err := strconv.ParseInt(sizeStr[:len(sizeStr)-1], 10, 64); err == nil {
				return kb * 1024, nil
			}
		case strings.HasSuffix(sizeStr, "M"):
			if mb, err := strconv.ParseInt(sizeStr[:len(sizeStr)-1], 10, 64); err == nil {
				return mb * 1024 * 1024, nil
			}
		default:
			if bytes, err := strconv.ParseInt(sizeStr, 10, 64); err == nil {
				return bytes, nil
			}
		}
	}
	return 0, fmt.Errorf("could not determine L3 cache size from sysfs")
}

func (hc *HostConfig) setDefaultL3CacheInfo() {
	defaultMB := int64(8)
	switch {
	case strings.Contains(strings.ToLower(hc.CPUModel), "xeon"):
		defaultMB = 32
	case strings.Contains(strings.ToLower(hc.CPUModel), "i7"):
		defaultMB = 12
	}
	hc.L3Cache.TotalSizeBytes = defaultMB * 1024 * 1024
	hc.L3Cache.TotalSizeMB = float64(defaultMB)
}

// ToResources builds the unreserved scalar Resources this host would
// contribute as an agent total: cpus, mem (MB) and l3_cache (MB).
func (hc *HostConfig) ToResources() resources.Resources {
	return resources.Unreserved(resources.Quantities{
		"cpus":     decimal.NewFromInt(int64(hc.TotalCores)),
		"mem":      decimal.NewFromInt(hc.MemMB),
		"l3_cache": decimal.NewFromFloat(hc.L3Cache.TotalSizeMB),
	})
}
