package seeds

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/victorlunam/dbseed/internal/config"
	"github.com/victorlunam/dbseed/internal/models"
)

// RegisterConfigured registers every seeder declared in the configuration file.
func RegisterConfigured(r *Registry, seeders []config.SeederConfig) error {
	for _, sc := range seeders {
		def := Definition{
			Slug:           sc.Slug,
			Tags:           mapset.NewThreadUnsafeSet(sc.Tags...),
			Path:           sc.Path,
			DeleteExisting: sc.DeleteExisting,
		}
		for _, qc := range sc.Querysets {
			def.Querysets = append(def.Querysets, models.Queryset{
				Model: models.Model{
					Name:       qc.Model,
					Table:      qc.Table,
					PK:         qc.PK,
					Fields:     qc.Fields,
					IdentityPK: qc.IdentityPK,
				},
				Where:   qc.Where,
				OrderBy: qc.OrderBy,
			})
		}
		if _, err := r.Register(def); err != nil {
			return err
		}
	}
	return nil
}
