package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/iota-uz/bookkeeper/modules/imports/domain/entities/importmapping"
	"github.com/iota-uz/bookkeeper/pkg/serrors"
)

var ErrInvalidMapping = serrors.NewError("IMPORT_MAPPING_INVALID", "import mapping is invalid", "Imports.Errors.InvalidMapping")

type MappingService struct {
	repo importmapping.Repository
}

func NewMappingService(repo importmapping.Repository) *MappingService {
	return &MappingService{repo: repo}
}

func (s *MappingService) GetByID(ctx context.Context, id uuid.UUID) (importmapping.Mapping, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *MappingService) GetByTitle(ctx context.Context, title string) (importmapping.Mapping, error) {
	return s.repo.GetByTitle(ctx, strings.TrimSpace(title))
}

func (s *MappingService) List(ctx context.Context) ([]importmapping.Mapping, error) {
	return s.repo.List(ctx)
}

func (s *MappingService) Create(ctx context.Context, dto *importmapping.CreateDTO) (importmapping.Mapping, error) {
	if errs, ok := dto.Ok(); !ok {
		return importmapping.Mapping{}, fmt.Errorf("%w: %s", ErrInvalidMapping, strings.Join(errs.Messages(), "; "))
	}
	return s.repo.Create(ctx, dto.ToEntity())
}

// DecodeMappingFile reads a mapping definition. The format follows the file extension:
// .toml, .yaml/.yml or .json.
func DecodeMappingFile(filename string, data []byte) (*importmapping.CreateDTO, error) {
	var dto importmapping.CreateDTO
	switch strings.ToLower(path.Ext(filename)) {
	case ".toml":
		meta, err := toml.Decode(string(data), &dto)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMapping, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("%w: unknown keys %v", ErrInvalidMapping, undecoded)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&dto); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMapping, err)
		}
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&dto); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMapping, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported mapping file %q", ErrInvalidMapping, filename)
	}
	return &dto, nil
}
