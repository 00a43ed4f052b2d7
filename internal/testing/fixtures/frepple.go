package fixtures

// FrePPLeSchema is the subset of the frePPLe schema an ERP pass writes to:
// the input tables, the task log, and the user table tasks refer to.
const FrePPLeSchema = `
CREATE TABLE common_user (
	id serial PRIMARY KEY,
	username varchar(150) NOT NULL UNIQUE
);

CREATE TABLE execute_log (
	id serial PRIMARY KEY,
	name varchar(50) NOT NULL,
	submitted timestamptz NOT NULL,
	started timestamptz,
	finished timestamptz,
	arguments text,
	status varchar(20) NOT NULL,
	message text,
	logfile varchar(200),
	processid integer,
	user_id integer REFERENCES common_user (id)
);

CREATE TABLE location (
	name varchar(300) PRIMARY KEY,
	description varchar(500),
	lastmodified timestamptz NOT NULL
);

CREATE TABLE customer (
	name varchar(300) PRIMARY KEY,
	category varchar(300),
	lastmodified timestamptz NOT NULL
);

CREATE TABLE item (
	name varchar(300) PRIMARY KEY,
	subcategory varchar(300),
	description varchar(500),
	category varchar(300),
	lastmodified timestamptz NOT NULL
);

CREATE TABLE supplier (
	name varchar(300) PRIMARY KEY,
	description varchar(500),
	lastmodified timestamptz NOT NULL
);

CREATE TABLE calendar (
	name varchar(300) PRIMARY KEY,
	defaultvalue numeric(20, 8),
	lastmodified timestamptz NOT NULL
);

CREATE TABLE calendarbucket (
	id serial PRIMARY KEY,
	calendar_id varchar(300) NOT NULL REFERENCES calendar (name),
	value numeric(20, 8) NOT NULL DEFAULT 0,
	startdate timestamptz,
	enddate timestamptz,
	priority integer,
	days integer,
	starttime time,
	endtime time,
	lastmodified timestamptz NOT NULL
);

CREATE TABLE resource (
	name varchar(300) PRIMARY KEY,
	category varchar(300),
	subcategory varchar(300),
	maximum numeric(20, 8),
	location_id varchar(300) REFERENCES location (name),
	type varchar(20),
	lastmodified timestamptz NOT NULL
);

CREATE TABLE operation (
	name varchar(300) PRIMARY KEY,
	description varchar(500),
	category varchar(300),
	subcategory varchar(300),
	type varchar(20),
	item_id varchar(300) REFERENCES item (name),
	location_id varchar(300) REFERENCES location (name),
	duration interval,
	duration_per interval,
	lastmodified timestamptz NOT NULL
);

CREATE TABLE operationresource (
	id serial PRIMARY KEY,
	operation_id varchar(300) NOT NULL REFERENCES operation (name),
	resource_id varchar(300) NOT NULL REFERENCES resource (name),
	quantity numeric(20, 8) NOT NULL DEFAULT 1,
	lastmodified timestamptz NOT NULL,
	UNIQUE (operation_id, resource_id)
);

CREATE TABLE operationmaterial (
	id serial PRIMARY KEY,
	operation_id varchar(300) NOT NULL REFERENCES operation (name),
	item_id varchar(300) NOT NULL REFERENCES item (name),
	type varchar(20),
	quantity numeric(20, 8),
	lastmodified timestamptz NOT NULL
);

CREATE TABLE buffer (
	id serial PRIMARY KEY,
	item_id varchar(300) NOT NULL REFERENCES item (name),
	location_id varchar(300) NOT NULL REFERENCES location (name),
	batch varchar(300),
	category varchar(300),
	onhand numeric(20, 8),
	lastmodified timestamptz NOT NULL,
	UNIQUE (item_id, location_id, batch)
);

CREATE TABLE itemsupplier (
	id serial PRIMARY KEY,
	item_id varchar(300) NOT NULL REFERENCES item (name),
	supplier_id varchar(300) NOT NULL REFERENCES supplier (name),
	location_id varchar(300) REFERENCES location (name),
	leadtime interval,
	cost numeric(20, 8),
	sizeminimum numeric(20, 8),
	priority integer,
	lastmodified timestamptz NOT NULL
);

CREATE TABLE itemdistribution (
	id serial PRIMARY KEY,
	item_id varchar(300) NOT NULL REFERENCES item (name),
	origin_id varchar(300) NOT NULL REFERENCES location (name),
	location_id varchar(300) REFERENCES location (name),
	leadtime interval,
	cost numeric(20, 8),
	sizeminimum numeric(20, 8),
	priority integer,
	lastmodified timestamptz NOT NULL
);

CREATE TABLE demand (
	name varchar(300) PRIMARY KEY,
	item_id varchar(300) NOT NULL REFERENCES item (name),
	location_id varchar(300) NOT NULL REFERENCES location (name),
	customer_id varchar(300) REFERENCES customer (name),
	status varchar(10),
	due timestamptz NOT NULL,
	quantity numeric(20, 8) NOT NULL CHECK (quantity >= 0),
	minshipment numeric(20, 8),
	description varchar(500),
	category varchar(300),
	priority integer,
	lastmodified timestamptz NOT NULL
);
`
