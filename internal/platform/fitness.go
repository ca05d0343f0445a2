package platform

import (
	"flapneat/internal/model"
	"flapneat/internal/scape"
)

// GenomeFitness writes a session's final fitness back into a genome record.
type GenomeFitness struct {
	genome *model.Genome
}

var _ scape.FitnessSink = (*GenomeFitness)(nil)

func NewGenomeFitness(genome *model.Genome) *GenomeFitness {
	return &GenomeFitness{genome: genome}
}

func (g *GenomeFitness) SetFitness(fitness float64) {
	g.genome.Fitness = fitness
}
