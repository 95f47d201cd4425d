package renderer

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

const benchPage = `<html><head><title>{{title}}</title>
<link rel="canonical" href="{{meta.canonical}}"></head>
<body>{{> header}}
<ul>{{#each features}}<li>{{this}}</li>{{/each}}</ul>
{{#ifEquals language "de"}}<p>{{languageName language}}</p>{{/ifEquals}}
{{> footer}}</body></html>`

func newBenchEngine(b *testing.B) *Engine {
	b.Helper()
	e, err := New(context.Background(), afero.NewMemMapFs(), Options{}, nil)
	if err != nil {
		b.Fatal(err)
	}
	partials := map[string]string{
		"header": `<header><a href="{{domain}}">{{title}}</a></header>`,
		"footer": `<footer>{{gtm_code}}</footer>`,
	}
	for name, source := range partials {
		if err := e.RegisterPartial(name, source); err != nil {
			b.Fatal(err)
		}
	}
	return e
}

func benchData(features int) map[string]interface{} {
	list := make([]string, features)
	for i := range list {
		list[i] = fmt.Sprintf("Feature %d", i)
	}
	return map[string]interface{}{
		"title":    "Angebot",
		"language": "de",
		"domain":   "https://ubackup.com",
		"gtm_code": "GTM-UB123",
		"meta":     map[string]interface{}{"canonical": "https://ubackup.com/de/landing/promo.html"},
		"features": list,
	}
}

func BenchmarkEngine_Render(b *testing.B) {
	e := newBenchEngine(b)
	data := benchData(10)
	ctx := context.Background()

	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		if _, err := e.Render(ctx, "index.hbs", benchPage, data); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEngine_RenderLargeList(b *testing.B) {
	e := newBenchEngine(b)
	data := benchData(1000)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		if _, err := e.Render(ctx, "index.hbs", benchPage, data); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEngine_RenderLargeTemplate(b *testing.B) {
	e := newBenchEngine(b)
	data := benchData(10)
	source := strings.Repeat(benchPage, 50)
	ctx := context.Background()

	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		if _, err := e.Render(ctx, "large.hbs", source, data); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEngine_RegisterPartial(b *testing.B) {
	e := newBenchEngine(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		name := fmt.Sprintf("section%d", i%64)
		if err := e.RegisterPartial(name, `<section>{{title}}</section>`); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEngine_Concurrent(b *testing.B) {
	e := newBenchEngine(b)
	data := benchData(10)
	ctx := context.Background()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := e.Render(ctx, "index.hbs", benchPage, data); err != nil {
				b.Error(err)
				return
			}
		}
	})
}
