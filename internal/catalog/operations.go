package catalog

import (
	"context"

	"github.com/peternagy/mongoplug/internal/database"
	"github.com/peternagy/mongoplug/internal/types"
	"github.com/peternagy/mongoplug/internal/watch"
)

// Parameter names.
const (
	ParamDBC    = "DBC"
	ParamDB     = "DB"
	ParamFilter = "FILTER"
	ParamKinds  = "OT"
	ParamValue  = "VALUE"
	ParamSort   = "SORT"
	ParamLimit  = "LIMIT"
	ParamType   = "TYPE"
	ParamUpsert = "UPSERT"
	ParamColl   = "COLL"
	ParamName   = "NAME"
	ParamUnique = "UNIQUE"
)

const (
	typeMany = "Many"
	typeOne  = "One"
	sortAsc  = "Asc"
	sortDesc = "Desc"
)

func dbcArg() Arg {
	return Arg{Name: ParamDBC, Type: ArgEntityCollection, Menu: MenuEntityCollections}
}

func filterArg() Arg {
	return Arg{Name: ParamFilter, Type: ArgDocument, Default: "{}"}
}

func typeArg() Arg {
	return Arg{Name: ParamType, Type: ArgEnum, Default: typeMany, Options: []string{typeMany, typeOne}}
}

func kindOptions() []string {
	kinds := watch.Kinds()
	out := make([]string, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, string(k))
	}
	return out
}

func operations() []Operation {
	return []Operation{
		{
			ID: "watch", Kind: KindHat, Order: 10,
			Template: "Watch changes of [DBC] | Filter: [FILTER], ChangeTypes: [OT]",
			Args: []Arg{dbcArg(), filterArg(),
				{Name: ParamKinds, Type: ArgMultiEnum, Default: string(watch.KindAny), Options: kindOptions()}},
			run: runWatch,
		},
		{
			ID: "createDoc", Kind: KindCommand, Order: 20,
			Template: "Insert doc [VALUE] of [DBC]",
			Args:     []Arg{dbcArg(), {Name: ParamValue, Type: ArgDocument, Default: `{"test":1}`}},
			run:      runInsert,
		},
		{
			ID: "countDoc", Kind: KindReporter, Order: 30,
			Template: "Count docs [FILTER] of [DBC]",
			Args:     []Arg{dbcArg(), filterArg()},
			run:      runCount,
		},
		{
			ID: "readDoc", Kind: KindReporter, Order: 34,
			Template: "Read doc [FILTER] of [DBC]",
			Args:     []Arg{dbcArg(), filterArg()},
			run:      runReadOne,
		},
		{
			ID: "readDocs", Kind: KindReporter, Order: 35,
			Template: "Read docs [FILTER] of [DBC] | Sort: [SORT], Limit: [LIMIT]",
			Args: []Arg{dbcArg(), filterArg(),
				{Name: ParamSort, Type: ArgDocument, Default: "{}"},
				{Name: ParamLimit, Type: ArgNumber, Default: 100}},
			run: runReadMany,
		},
		{
			ID: "deleteDoc", Kind: KindCommand, Order: 40,
			Template: "Delete [TYPE] docs by filter [FILTER] of [DBC]",
			Args:     []Arg{dbcArg(), typeArg(), filterArg()},
			run:      runDelete,
		},
		{
			ID: "updateDoc", Kind: KindCommand, Order: 60,
			Template: "Update [TYPE] doc by filter [FILTER]. Set [VALUE] of [DBC] | Upsert: [UPSERT]",
			Args: []Arg{dbcArg(),
				{Name: ParamValue, Type: ArgDocument, Default: `{"$set":{"test":1}}`},
				typeArg(), filterArg(),
				{Name: ParamUpsert, Type: ArgBoolean, Default: false}},
			run: runUpdate,
		},
		{
			ID: "createColl", Kind: KindCommand, Order: 100,
			Template: "Create collection [COLL] of [DB]",
			Args: []Arg{{Name: ParamDB, Type: ArgEntity, Menu: MenuEntities},
				{Name: ParamColl, Type: ArgString, Default: "name"}},
			run: runCreateCollection,
		},
		{
			ID: "dropColl", Kind: KindCommand, Order: 110,
			Template: "Delete collection [DBC]",
			Args:     []Arg{dbcArg()},
			run:      runDropCollection,
		},
		{
			ID: "createIndex", Kind: KindCommand, Order: 120,
			Template: "Create [SORT] index [NAME] [DBC] | Unique: [UNIQUE]",
			Args: []Arg{dbcArg(),
				{Name: ParamName, Type: ArgString, Default: "stars, name"},
				{Name: ParamSort, Type: ArgEnum, Default: sortAsc, Options: []string{sortAsc, sortDesc}},
				{Name: ParamUnique, Type: ArgBoolean, Default: false}},
			run: runCreateIndex,
		},
		{
			ID: "dropIndex", Kind: KindCommand, Order: 130,
			Template: "Delete index [NAME] [DBC]",
			Args:     []Arg{dbcArg(), {Name: ParamName, Type: ArgString, Default: "name"}},
			run:      runDropIndex,
		},
	}
}

func runWatch(ctx context.Context, c *Catalog, a *Args, cont Continuation) (types.Value, error) {
	filter, err := a.Document(ParamFilter)
	if err != nil {
		return types.Void(), err
	}
	names, err := a.MultiEnum(ParamKinds)
	if err != nil {
		return types.Void(), err
	}
	kinds, err := watch.ParseKinds(names)
	if err != nil {
		return types.Void(), err
	}
	if cont == nil {
		return types.Void(), a.invalid("watch needs a continuation")
	}
	coll, err := c.ResolveCollection(a.Target(ParamDBC))
	if err != nil {
		return types.Void(), err
	}

	sub := watch.NewSubscription(filter, kinds)
	c.log.Infow("watch subscribed", "subscription", sub.ID, "collection", coll.Name())
	return types.Void(), c.watcher.Run(ctx, watch.CollectionSource{Collection: coll}, sub, cont)
}

func runInsert(ctx context.Context, c *Catalog, a *Args, _ Continuation) (types.Value, error) {
	doc, err := a.Document(ParamValue)
	if err != nil {
		return types.Void(), err
	}
	coll, err := c.ResolveCollection(a.Target(ParamDBC))
	if err != nil {
		return types.Void(), err
	}
	return types.Void(), c.docs.InsertDocument(ctx, coll, doc)
}

func runCount(ctx context.Context, c *Catalog, a *Args, _ Continuation) (types.Value, error) {
	filter, err := a.Document(ParamFilter)
	if err != nil {
		return types.Void(), err
	}
	coll, err := c.ResolveCollection(a.Target(ParamDBC))
	if err != nil {
		return types.Void(), err
	}
	n, err := c.docs.CountDocuments(ctx, coll, filter)
	if err != nil {
		return types.Void(), err
	}
	return types.Number(n), nil
}

func runReadOne(ctx context.Context, c *Catalog, a *Args, _ Continuation) (types.Value, error) {
	filter, err := a.Document(ParamFilter)
	if err != nil {
		return types.Void(), err
	}
	coll, err := c.ResolveCollection(a.Target(ParamDBC))
	if err != nil {
		return types.Void(), err
	}
	return c.docs.Read(ctx, coll, filter)
}

func runReadMany(ctx context.Context, c *Catalog, a *Args, _ Continuation) (types.Value, error) {
	filter, err := a.Document(ParamFilter)
	if err != nil {
		return types.Void(), err
	}
	sort, err := a.Document(ParamSort)
	if err != nil {
		return types.Void(), err
	}
	limit, err := a.Int(ParamLimit)
	if err != nil {
		return types.Void(), err
	}
	coll, err := c.ResolveCollection(a.Target(ParamDBC))
	if err != nil {
		return types.Void(), err
	}
	docs, err := c.docs.FindDocuments(ctx, coll, filter, sort, limit)
	if err != nil {
		return types.Void(), err
	}
	return types.Documents(docs), nil
}

func runDelete(ctx context.Context, c *Catalog, a *Args, _ Continuation) (types.Value, error) {
	kind, err := a.Enum(ParamType)
	if err != nil {
		return types.Void(), err
	}
	filter, err := a.Document(ParamFilter)
	if err != nil {
		return types.Void(), err
	}
	coll, err := c.ResolveCollection(a.Target(ParamDBC))
	if err != nil {
		return types.Void(), err
	}
	return types.Void(), c.docs.DeleteDocuments(ctx, coll, filter, kind == typeMany)
}

func runUpdate(ctx context.Context, c *Catalog, a *Args, _ Continuation) (types.Value, error) {
	update, err := a.Document(ParamValue)
	if err != nil {
		return types.Void(), err
	}
	kind, err := a.Enum(ParamType)
	if err != nil {
		return types.Void(), err
	}
	filter, err := a.Document(ParamFilter)
	if err != nil {
		return types.Void(), err
	}
	upsert, err := a.Bool(ParamUpsert)
	if err != nil {
		return types.Void(), err
	}
	coll, err := c.ResolveCollection(a.Target(ParamDBC))
	if err != nil {
		return types.Void(), err
	}
	return types.Void(), c.docs.UpdateDocuments(ctx, coll, filter, update, kind == typeMany, upsert)
}

func runCreateCollection(ctx context.Context, c *Catalog, a *Args, _ Continuation) (types.Value, error) {
	name := a.String(ParamColl)
	if err := database.ValidateCollectionName(name); err != nil {
		return types.Void(), err
	}
	db, err := c.ResolveDatabase(a.Target(ParamDB))
	if err != nil {
		return types.Void(), err
	}
	return types.Void(), c.dbs.CreateCollection(ctx, db, name)
}

func runDropCollection(ctx context.Context, c *Catalog, a *Args, _ Continuation) (types.Value, error) {
	coll, err := c.ResolveCollection(a.Target(ParamDBC))
	if err != nil {
		return types.Void(), err
	}
	return types.Void(), c.dbs.DropCollection(ctx, coll)
}

func runCreateIndex(ctx context.Context, c *Catalog, a *Args, _ Continuation) (types.Value, error) {
	fields := a.String(ParamName)
	if _, err := database.ParseIndexFields(fields); err != nil {
		return types.Void(), err
	}
	order, err := a.Enum(ParamSort)
	if err != nil {
		return types.Void(), err
	}
	unique, err := a.Bool(ParamUnique)
	if err != nil {
		return types.Void(), err
	}
	coll, err := c.ResolveCollection(a.Target(ParamDBC))
	if err != nil {
		return types.Void(), err
	}
	return types.Void(), c.dbs.CreateIndex(ctx, coll, fields, order == sortDesc, unique)
}

func runDropIndex(ctx context.Context, c *Catalog, a *Args, _ Continuation) (types.Value, error) {
	name := a.String(ParamName)
	if err := database.ValidateIndexName(name); err != nil {
		return types.Void(), err
	}
	coll, err := c.ResolveCollection(a.Target(ParamDBC))
	if err != nil {
		return types.Void(), err
	}
	return types.Void(), c.dbs.DropIndex(ctx, coll, name)
}
