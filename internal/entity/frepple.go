package entity

// Views exposed by the ERP for frePPLe, one per entity type.
const (
	viewLocation          = "select * from uTN_V_Frepple_LocationData"
	viewCustomer          = "select * from uTN_V_Frepple_CustomerData"
	viewItem              = "select * from uTN_V_Frepple_ItemData"
	viewSupplier          = "select * from uTN_V_Frepple_SupplierData"
	viewCalendar          = "select * from uTN_V_Frepple_CalendarData"
	viewCalendarBucket    = "select * from uTN_V_Frepple_CalendarBucketsData"
	viewResource          = "select * from uTN_V_Frepple_ResourcesData"
	viewOperation         = "select * from uTN_V_Frepple_OperationData"
	viewOperationResource = "select * from uTN_V_Frepple_OperationResourcesData"
	viewOperationMaterial = "select * from uTN_V_Frepple_OperationMaterialData"
	viewBuffer            = "select * from uTN_V_Frepple_BufferData"
	viewItemSupplier      = "select * from uTN_V_Frepple_ItemSupplierData"
	viewItemDistribution  = "select * from uTN_V_Frepple_ItemDistributionData"
	viewDemand            = "select * from uTN_V_Frepple_SalesOrderData"
)

func name() Field {
	return Field{Name: "name", Column: "name", Kind: KindString, Required: true}
}

func text(n string) Field {
	return Field{Name: n, Column: n, Kind: KindString}
}

func number(n string) Field {
	return Field{Name: n, Column: n, Kind: KindNumber}
}

func ref(n, entity string, required bool) Field {
	return Field{Name: n, Column: n + "_id", Kind: KindString, Required: required, Ref: entity}
}

// FrePPLe returns the catalog of frePPLe input tables in load order.
func FrePPLe() *Catalog {
	return MustCatalog(
		&Descriptor{
			Name: "location", Table: "location", Identity: "name", Key: []string{"name"},
			Fields: []Field{name(), text("description")},
			Query:  viewLocation,
		},
		&Descriptor{
			Name: "customer", Table: "customer", Identity: "name", Key: []string{"name"},
			Fields: []Field{name(), text("category")},
			Query:  viewCustomer,
		},
		&Descriptor{
			Name: "item", Table: "item", Identity: "name", Key: []string{"name"},
			Fields: []Field{name(), text("subcategory"), text("description"), text("category")},
			Query:  viewItem,
		},
		&Descriptor{
			Name: "supplier", Table: "supplier", Identity: "name", Key: []string{"name"},
			Fields: []Field{name(), text("description")},
			Query:  viewSupplier,
		},
		&Descriptor{
			Name: "calendar", Table: "calendar", Identity: "name", Key: []string{"name"},
			Fields: []Field{name(), {Name: "default", Column: "defaultvalue", Kind: KindNumber}},
			Query:  viewCalendar,
		},
		&Descriptor{
			Name: "calendarbucket", Table: "calendarbucket", Identity: "id",
			Key: []string{"calendar", "startdate", "priority"},
			Fields: []Field{
				ref("calendar", "calendar", true),
				number("value"),
				{Name: "startdate", Column: "startdate", Kind: KindTime},
				{Name: "enddate", Column: "enddate", Kind: KindTime},
				{Name: "priority", Column: "priority", Kind: KindInteger},
				{Name: "days", Column: "days", Kind: KindInteger},
				{Name: "starttime", Column: "starttime", Kind: KindClock},
				{Name: "endtime", Column: "endtime", Kind: KindClock},
			},
			Query: viewCalendarBucket,
		},
		&Descriptor{
			Name: "resource", Table: "resource", Identity: "name", Key: []string{"name"},
			Fields: []Field{
				name(), text("category"), text("subcategory"), number("maximum"),
				ref("location", "location", false), text("type"),
			},
			Query: viewResource,
		},
		&Descriptor{
			Name: "operation", Table: "operation", Identity: "name", Key: []string{"name"},
			Fields: []Field{
				name(), text("description"), text("category"), text("subcategory"), text("type"),
				ref("item", "item", false), ref("location", "location", false),
				{Name: "duration", Column: "duration", Kind: KindDuration},
				{Name: "duration_per", Column: "duration_per", Kind: KindDuration},
			},
			Query: viewOperation,
		},
		&Descriptor{
			Name: "operationresource", Table: "operationresource", Identity: "id",
			Key: []string{"operation", "resource"},
			Fields: []Field{
				ref("operation", "operation", true), ref("resource", "resource", true), number("quantity"),
			},
			Query: viewOperationResource,
		},
		&Descriptor{
			Name: "operationmaterial", Table: "operationmaterial", Identity: "id",
			Key: []string{"operation", "item"},
			Fields: []Field{
				ref("operation", "operation", true), ref("item", "item", true), text("type"), number("quantity"),
			},
			Query: viewOperationMaterial,
		},
		&Descriptor{
			Name: "buffer", Table: "buffer", Identity: "id",
			Key: []string{"item", "location", "batch"},
			Fields: []Field{
				ref("item", "item", true), ref("location", "location", true),
				text("batch"), text("category"), number("onhand"),
			},
			Query: viewBuffer,
		},
		&Descriptor{
			Name: "itemsupplier", Table: "itemsupplier", Identity: "id",
			Key: []string{"item", "supplier", "location"},
			Fields: []Field{
				ref("item", "item", true), ref("supplier", "supplier", true), ref("location", "location", false),
				{Name: "leadtime", Column: "leadtime", Kind: KindDuration},
				number("cost"), number("sizeminimum"),
				{Name: "priority", Column: "priority", Kind: KindInteger},
			},
			Query: viewItemSupplier,
		},
		&Descriptor{
			Name: "itemdistribution", Table: "itemdistribution", Identity: "id",
			Key: []string{"item", "origin", "location"},
			Fields: []Field{
				ref("item", "item", true), ref("origin", "location", true), ref("location", "location", false),
				{Name: "leadtime", Column: "leadtime", Kind: KindDuration},
				number("cost"), number("sizeminimum"),
				{Name: "priority", Column: "priority", Kind: KindInteger},
			},
			Query: viewItemDistribution,
		},
		&Descriptor{
			Name: "demand", Table: "demand", Identity: "name", Key: []string{"name"},
			Fields: []Field{
				name(),
				ref("item", "item", true), ref("location", "location", true), ref("customer", "customer", false),
				text("status"),
				{Name: "due", Column: "due", Kind: KindTime, Required: true},
				{Name: "quantity", Column: "quantity", Kind: KindNumber, Required: true},
				number("minshipment"), text("description"), text("category"),
				{Name: "priority", Column: "priority", Kind: KindInteger},
			},
			Query: viewDemand,
		},
	)
}
