package storage

import (
	"encoding/json"
	"errors"

	"flapneat/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// CurrentVersion stamps a record with the versions this build reads.
func CurrentVersion() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

func EncodeGenome(g model.Genome) ([]byte, error) {
	return json.Marshal(g)
}

func DecodeGenome(data []byte) (model.Genome, error) {
	var genome model.Genome
	if err := json.Unmarshal(data, &genome); err != nil {
		return model.Genome{}, err
	}
	if err := checkVersion(genome.VersionedRecord); err != nil {
		return model.Genome{}, err
	}
	return genome, nil
}

func EncodePopulation(p model.Population) ([]byte, error) {
	return json.Marshal(p)
}

func DecodePopulation(data []byte) (model.Population, error) {
	var population model.Population
	if err := json.Unmarshal(data, &population); err != nil {
		return model.Population{}, err
	}
	if err := checkVersion(population.VersionedRecord); err != nil {
		return model.Population{}, err
	}
	return population, nil
}

func EncodeGenerationResult(r model.GenerationResult) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeGenerationResult(data []byte) (model.GenerationResult, error) {
	var result model.GenerationResult
	if err := json.Unmarshal(data, &result); err != nil {
		return model.GenerationResult{}, err
	}
	if err := checkVersion(result.VersionedRecord); err != nil {
		return model.GenerationResult{}, err
	}
	return result, nil
}

func EncodePolicyArtifact(a model.PolicyArtifact) ([]byte, error) {
	return json.Marshal(a)
}

func DecodePolicyArtifact(data []byte) (model.PolicyArtifact, error) {
	var artifact model.PolicyArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return model.PolicyArtifact{}, err
	}
	if err := checkVersion(artifact.VersionedRecord); err != nil {
		return model.PolicyArtifact{}, err
	}
	if err := checkVersion(artifact.Genome.VersionedRecord); err != nil {
		return model.PolicyArtifact{}, err
	}
	return artifact, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
