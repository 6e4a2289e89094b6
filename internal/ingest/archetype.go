package ingest

import "subzero/internal/models"

// detectArchetype 两级判别：先查 sensor_type 判别字段，再按字段存在性启发式推断
// 启发式回退是对旧固件的兼容垫片，按原有行为保留
func detectArchetype(payload map[string]interface{}) models.Archetype {
	if st, ok := payload["sensor_type"].(string); ok {
		switch models.Archetype(st) {
		case models.ArchetypeFreezer, models.ArchetypeEnvironment,
			models.ArchetypeVehicle, models.ArchetypeWearable:
			return models.Archetype(st)
		}
		// 判别字段值不认识：继续走启发式（旧固件可能用过别的名字）
	}

	has := func(key string) bool {
		_, ok := payload[key]
		return ok
	}

	switch {
	case has("temp_cabinet") || has("compressor_power_w"):
		return models.ArchetypeFreezer
	case has("speed") || has("rpm"):
		return models.ArchetypeVehicle
	case has("heart_rate"):
		return models.ArchetypeWearable
	case has("humidity") && has("temperature"):
		return models.ArchetypeEnvironment
	}

	return models.ArchetypeUnknown
}
