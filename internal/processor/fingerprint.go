package processor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"

	"github.com/vk/neurogrid/internal/dataset"
	"github.com/vk/neurogrid/internal/iface"
)

// fingerprint hashes the interface name and validated inputs. File inputs
// contribute their content checksum instead of their path, so a moved
// dataset keeps its cache and an edited file invalidates it.
func fingerprint(ctx context.Context, i iface.Interface, in iface.Inputs, limit int) (string, error) {
	var paths []string
	for _, t := range i.InputSpec() {
		switch v := in[t.Name].(type) {
		case string:
			if t.Kind == iface.KindFile && !t.GenFile {
				paths = append(paths, v)
			}
		case []string:
			if t.Kind == iface.KindFiles {
				paths = append(paths, v...)
			}
		}
	}
	sums, err := dataset.Checksums(ctx, paths, limit)
	if err != nil {
		return "", err
	}

	values := make(map[string]any, len(in))
	for name, v := range in {
		values[name] = v
	}
	for _, t := range i.InputSpec() {
		switch v := in[t.Name].(type) {
		case string:
			if sum, ok := sums[v]; ok && t.Kind == iface.KindFile {
				values[t.Name] = "sha256:" + sum
			}
		case []string:
			if t.Kind != iface.KindFiles {
				continue
			}
			list := make([]string, len(v))
			for j, p := range v {
				list[j] = "sha256:" + sums[p]
			}
			values[t.Name] = list
		}
	}

	data, err := json.Marshal(struct {
		Interface string         `json:"interface"`
		Inputs    map[string]any `json:"inputs"`
	}{i.Name(), values})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// outputsExist reports whether every file output is still on disk.
func outputsExist(spec iface.Spec, out iface.Outputs) bool {
	for _, t := range spec {
		switch v := out[t.Name].(type) {
		case string:
			if t.Kind == iface.KindFile && !exists(v) {
				return false
			}
		case []string:
			for _, p := range v {
				if !exists(p) {
					return false
				}
			}
		}
	}
	return true
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
