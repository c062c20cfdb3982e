package api

import (
	"strings"

	"oferta/internal"
	"oferta/internal/pipeline"
	"oferta/internal/schema"
	"oferta/internal/util"
)

// apiFields lists, per canonical field, the JSON members the api uses for
// it in order of preference. Fields not listed are looked up by their own
// name and by its snake_case form.
var apiFields = map[internal.Domain]map[string][]string{
	internal.DomainHistoric: {
		schema.HistoricRegionCode:  {"cod_regional"},
		schema.HistoricRegionName:  {"nombre_regional"},
		"CODIGO_CENTRO":            {"cod_centro"},
		schema.HistoricCenter:      {"nombre_centro", "cod_centro"},
		"CODIGO_PROGRAMA":          {"cod_programa"},
		schema.HistoricProgram:     {"programa_formacion", "cod_programa"},
		schema.HistoricModality:    {"modalidad"},
		schema.HistoricStatus:      {"estado_curso"},
		"CODIGO_MUNICIPIO":         {"cod_municipio"},
		"CODIGO_ESTRATEGIA":        {"cod_estrategia"},
		"HISTORICO":                {"id_historico", "historico"},
		"CODIGO_FICHA_RELACIONADO": {"cod_ficha_relacionado", "id_grupo"},
		"MATRICULADOS":             {"num_aprendices_matriculados", "num_aprendices_activos"},
		"ACTIVOS":                  {"num_aprendices_activos"},
		"INSCRITOS":                {"num_aprendices_inscritos"},
		"EN_TRANSITO":              {"num_aprendices_en_transito"},
		"FORMACION":                {"num_aprendices_formacion"},
		"INDUCCION":                {"num_aprendices_induccion"},
		"CONDICIONADOS":            {"num_aprendices_condicionados"},
		"APLAZADOS":                {"num_aprendices_aplazados"},
		"RETIROS_VOLUNTARIOS":      {"num_aprendices_retirado_voluntario"},
		"CANCELADOS":               {"num_aprendices_cancelados"},
		"REPROBADOS":               {"num_aprendices_reprobados"},
		"NO_APTOS":                 {"num_aprendices_no_aptos"},
		"REINGRESADO":              {"num_aprendices_reingresados"},
		"POR_CERTIFICAR":           {"num_aprendices_por_certificar"},
		"CERTIFICADOS":             {"num_aprendices_certificados"},
		"TRASLADADOS":              {"num_aprendices_trasladados"},
	},
	internal.DomainRegistry: {
		"TIPO DE TRAMITE":            {"tipo_tramite", "tramite"},
		"NUMERO DE RESOLUCION":       {"numero_resolucion", "num_resolucion"},
		"FECHA DE RESOLUCIÓN":        {"fecha_resolucion"},
		"COD DEL PROGRAMA":           {"snies", "codigo_snies", "cod_programa"},
		schema.RegistryExpiry:        {"fecha_vencimiento"},
		"CODIGO PROGRAMA":            {"codigo_programa", "cod_programa"},
		"NOMBRE DEL PROGRAMA":        {"nombre_programa", "programa"},
		"NIVEL DE FORMACION":         {"nivel_formacion"},
		"MODALIDAD":                  {"modalidad", "modalidad_formacion"},
		"CLASIFICACIÓN PARA TRÁMITE": {"clasificacion_tramite", "clasificacion"},
	},
	internal.DomainCatalog: {
		schema.CatalogCode:   {"codigo_programa", "cod_programa", "prf_codigo"},
		"VERSION":            {"version", "prf_version"},
		"NOMBRE_PROGRAMA":    {"nombre_programa", "denominacion", "prf_denominacion"},
		"NIVEL DE FORMACION": {"nivel_formacion"},
		"DURACION MAXIMA":    {"duracion_maxima", "duracion"},
	},
}

// ToRecords maps api rows onto the domain schema. Date fields are
// normalized and counters coerced exactly as for uploaded files.
func ToRecords(d internal.Domain, s *schema.Schema, rows []map[string]any) ([]schema.Record, error) {
	aliases := apiFields[d]
	source := make([]pipeline.SourceRow, 0, len(rows))
	for _, row := range rows {
		out := pipeline.SourceRow{}
		for _, name := range s.Names() {
			keys, ok := aliases[name]
			if !ok {
				keys = []string{name, snakeCase(name)}
			}
			out[name] = firstPresent(row, keys)
		}
		source = append(source, out)
	}
	return pipeline.TransformRows(s, source, pipeline.Identity(s))
}

func firstPresent(row map[string]any, keys []string) any {
	for _, k := range keys {
		v, ok := row[k]
		if !ok || v == nil {
			continue
		}
		if strings.TrimSpace(util.CellString(v)) == "" {
			continue
		}
		return v
	}
	return nil
}

func snakeCase(field string) string {
	return strings.ReplaceAll(strings.ToLower(util.NormalizeHeader(field)), " ", "_")
}
