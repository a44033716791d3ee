package orm

import (
	"strconv"
	"strings"

	"github.com/relman/regminer/lib/model"
	"github.com/relman/regminer/lib/utils"
)

func encodeMetric(v int) *int {
	return utils.IIf(v == -1, nil, &v)
}

func decodeMetric(v *int) int {
	if v == nil {
		return -1
	} else {
		return *v
	}
}

func encodeMap[K comparable, V any](m map[K]V) map[K]V {
	if len(m) == 0 {
		return nil
	}

	return cloneMap(m)
}

func decodeMap[K comparable, V any](m map[K]V) map[K]V {
	return cloneMap(m)
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	result := make(map[K]V, len(m))
	for k, v := range m {
		result[k] = v
	}
	return result
}

func encodeRanges(rs []model.LineRange) string {
	var sb strings.Builder

	for _, r := range rs {
		if sb.Len() > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(strconv.Itoa(r.Start))
		sb.WriteString("-")
		sb.WriteString(strconv.Itoa(r.End))
	}

	return sb.String()
}

func decodeRanges(v string) []model.LineRange {
	if v == "" {
		return nil
	}

	var result []model.LineRange
	for _, part := range strings.Split(v, ",") {
		se := strings.SplitN(part, "-", 2)
		start, err := strconv.Atoi(se[0])
		if err != nil {
			panic(err)
		}
		end, err := strconv.Atoi(se[1])
		if err != nil {
			panic(err)
		}
		result = append(result, model.LineRange{Start: start, End: end})
	}
	return result
}

func encodeIDMap(m map[model.ID]string) string {
	var sb strings.Builder

	for k, v := range m {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(k.String())
		sb.WriteString(":")
		sb.WriteString(v)
	}

	return sb.String()
}

func decodeIDMap(v string) map[model.ID]string {
	result := make(map[model.ID]string)
	if v == "" {
		return result
	}

	for _, line := range strings.Split(v, "\n") {
		kv := strings.SplitN(line, ":", 2)
		result[model.MustStringToID(kv[0])] = kv[1]
	}

	return result
}

func compositeKey(ks ...string) string {
	return strings.Join(ks, "\n")
}
